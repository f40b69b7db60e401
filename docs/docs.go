// Package docs holds the OpenAPI description served under /swagger. It mirrors
// the swag annotations on cmd/server and the news handlers; regenerate with
// `swag init -g cmd/server/main.go` after changing them.
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
        "/news": {
            "get": {
                "description": "Returns today's generated post for the caller's session, loading it from the cache when needed.",
                "produces": ["application/json"],
                "tags": ["News"],
                "summary": "Get today's news",
                "operationId": "getNews",
                "parameters": [
                    {"type": "string", "description": "Session ID (defaults to the news_sid cookie)", "name": "X-Session-ID", "in": "header"},
                    {"type": "string", "description": "ETag from a previous response", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.NewsResponse"}},
                    "304": {"description": "Not modified"},
                    "404": {"description": "Nothing generated today", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Calls the remote agent at most once per calendar day. Later calls report the cached result until it is cleared.\nA retry carrying an Idempotency-Key after today's news exists is answered from the cache and marked Idempotency-Replayed.",
                "produces": ["application/json"],
                "tags": ["News"],
                "summary": "Generate today's news",
                "operationId": "generateNews",
                "parameters": [
                    {"type": "string", "description": "Session ID (defaults to the news_sid cookie)", "name": "X-Session-ID", "in": "header"},
                    {"type": "string", "example": "7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab", "description": "Key for safe retries", "name": "Idempotency-Key", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "Already generated today", "schema": {"$ref": "#/definitions/handlers.GenerateResponse"}},
                    "201": {"description": "Generated", "schema": {"$ref": "#/definitions/handlers.GenerateResponse"}},
                    "409": {"description": "Generation already running", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Remote agent failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "description": "Deletes today's cached result so the news can be generated again.",
                "produces": ["application/json"],
                "tags": ["News"],
                "summary": "Clear today's news",
                "operationId": "clearNews",
                "parameters": [
                    {"type": "string", "description": "Session ID (defaults to the news_sid cookie)", "name": "X-Session-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/news/text": {
            "get": {
                "description": "Returns the raw post for copying to the clipboard.",
                "produces": ["text/plain"],
                "tags": ["News"],
                "summary": "Get today's news as plain text",
                "operationId": "getNewsText",
                "parameters": [
                    {"type": "string", "description": "Session ID (defaults to the news_sid cookie)", "name": "X-Session-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "Post text", "schema": {"type": "string"}},
                    "404": {"description": "Nothing generated today", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/news/download": {
            "get": {
                "description": "Returns ai_news.docx holding the post as a single paragraph.",
                "produces": ["application/vnd.openxmlformats-officedocument.wordprocessingml.document"],
                "tags": ["News"],
                "summary": "Download today's news as a Word document",
                "operationId": "downloadNews",
                "parameters": [
                    {"type": "string", "description": "Session ID (defaults to the news_sid cookie)", "name": "X-Session-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Nothing generated today", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Export failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "resource not found"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.GenerateResponse": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2026-10-15"},
                "message": {"type": "string", "example": "News generated successfully!"},
                "status": {"type": "string", "example": "generated"},
                "text": {"type": "string"}
            }
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "News cleared. You can now re-generate the news."}
            }
        },
        "handlers.NewsResponse": {
            "type": "object",
            "properties": {
                "attempts_today": {"type": "integer", "example": 1},
                "date": {"type": "string", "example": "2026-10-15"},
                "generating": {"type": "boolean", "example": false},
                "text": {"type": "string", "example": "AI agents are reshaping..."}
            }
        }
    },
    "securityDefinitions": {
        "SessionID": {"type": "apiKey", "name": "X-Session-ID", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Go News Generator API",
	Description:      "Generates one AI news post per calendar day through a remote agent and serves it as JSON, plain text, or a Word document.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
