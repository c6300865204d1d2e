// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/admins/login": {
            "post": {
                "tags": ["admins"],
                "summary": "Log in as an admin",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "credentials", "required": true, "schema": {"$ref": "#/definitions/services.LoginInput"}}],
                "responses": {"200": {"description": "token and admin"}, "401": {"description": "invalid credentials"}}
            }
        },
        "/api/leagues": {
            "get": {"tags": ["leagues"], "summary": "List leagues", "responses": {"200": {"description": "leagues"}}},
            "post": {"tags": ["leagues"], "summary": "Create a league", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "created"}, "409": {"description": "name taken"}}}
        },
        "/api/matches": {
            "post": {"tags": ["matches"], "summary": "Create a match", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "created"}, "400": {"description": "validation failed"}}}
        },
        "/api/matches/{id}": {
            "get": {"tags": ["matches"], "summary": "Get a match with elapsed minutes", "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}], "responses": {"200": {"description": "match view"}, "404": {"description": "not found"}}},
            "patch": {"tags": ["matches"], "summary": "Update match fields", "security": [{"BearerAuth": []}], "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}], "responses": {"200": {"description": "updated"}}},
            "delete": {"tags": ["matches"], "summary": "Delete a match", "security": [{"BearerAuth": []}], "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}], "responses": {"200": {"description": "deleted"}}}
        },
        "/api/matches/{id}/status": {
            "patch": {"tags": ["matches"], "summary": "Change match status", "security": [{"BearerAuth": []}], "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}], "responses": {"200": {"description": "updated"}}}
        },
        "/api/matches/league/{leagueId}": {
            "get": {"tags": ["matches"], "summary": "List matches of a league", "parameters": [{"in": "path", "name": "leagueId", "type": "integer", "required": true}], "responses": {"200": {"description": "matches"}}}
        },
        "/api/match-details/{matchId}": {
            "get": {"tags": ["match-details"], "summary": "Get a match with its details", "parameters": [{"in": "path", "name": "matchId", "type": "integer", "required": true}], "responses": {"200": {"description": "match and details"}, "404": {"description": "not found"}}},
            "post": {"tags": ["match-details"], "summary": "Add details to a match", "consumes": ["application/json", "multipart/form-data"], "security": [{"BearerAuth": []}], "parameters": [{"in": "path", "name": "matchId", "type": "integer", "required": true}], "responses": {"201": {"description": "created"}, "400": {"description": "details already exist or invalid"}, "500": {"description": "upload failed"}}},
            "patch": {"tags": ["match-details"], "summary": "Partially update match details", "consumes": ["application/json", "multipart/form-data"], "security": [{"BearerAuth": []}], "parameters": [{"in": "path", "name": "matchId", "type": "integer", "required": true}], "responses": {"200": {"description": "updated"}, "404": {"description": "no details yet"}, "500": {"description": "upload failed"}}}
        },
        "/api/match-details/{matchId}/videos/{videoId}": {
            "delete": {"tags": ["match-details"], "summary": "Remove one video", "security": [{"BearerAuth": []}], "parameters": [{"in": "path", "name": "matchId", "type": "integer", "required": true}, {"in": "path", "name": "videoId", "type": "string", "required": true}, {"in": "query", "name": "mode", "type": "string", "enum": ["detach", "purge"], "required": true}], "responses": {"200": {"description": "removed"}}}
        },
        "/api/videos": {
            "get": {"tags": ["videos"], "summary": "List uploaded videos", "responses": {"200": {"description": "videos"}}}
        },
        "/api/videos/upload": {
            "post": {"tags": ["videos"], "summary": "Upload a video file", "consumes": ["multipart/form-data"], "security": [{"BearerAuth": []}], "parameters": [{"in": "formData", "name": "video", "type": "file", "required": true}, {"in": "formData", "name": "title", "type": "string"}, {"in": "formData", "name": "matchId", "type": "integer"}], "responses": {"201": {"description": "uploaded"}, "500": {"description": "storage error"}}}
        }
    },
    "definitions": {
        "services.LoginInput": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "InMatch API",
	Description:      "Live football match center: leagues, matches, details, videos and realtime updates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
