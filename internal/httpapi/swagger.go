//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// apiDoc is a hand-maintained OpenAPI 2.0 description of the public routes.
type apiDoc struct{}

func (apiDoc) ReadDoc() string { return openAPISpec }

func init() {
	swag.Register(swag.Name, apiDoc{})
}

// MountSwagger serves the Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

const openAPISpec = `{
  "swagger": "2.0",
  "info": {"title": "relayd API", "version": "1.0", "description": "Streaming relay in front of a local inference server."},
  "basePath": "/",
  "schemes": ["http"],
  "paths": {
    "/api/chat": {
      "post": {
        "summary": "Generate a reply",
        "consumes": ["application/json"],
        "produces": ["application/json", "text/plain"],
        "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ChatRequest"}}],
        "responses": {
          "200": {"description": "Raw text stream when stream=true, otherwise ChatResponse", "schema": {"$ref": "#/definitions/ChatResponse"}},
          "400": {"description": "Missing message or invalid body", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "415": {"description": "Wrong content type", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "502": {"description": "Upstream failure", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "504": {"description": "Upstream timeout", "schema": {"$ref": "#/definitions/ErrorResponse"}}
        }
      }
    },
    "/api/models": {
      "get": {
        "summary": "List installed models",
        "produces": ["application/json"],
        "responses": {
          "200": {"description": "Model names", "schema": {"$ref": "#/definitions/ModelsResponse"}},
          "502": {"description": "Upstream unavailable; models is empty", "schema": {"$ref": "#/definitions/ModelsResponse"}}
        }
      }
    },
    "/healthz": {"get": {"summary": "Liveness", "responses": {"200": {"description": "ok"}}}},
    "/readyz": {"get": {"summary": "Upstream readiness", "responses": {"200": {"description": "ready"}, "503": {"description": "upstream unavailable"}}}}
  },
  "definitions": {
    "ChatRequest": {"type": "object", "required": ["message"], "properties": {
      "message": {"type": "string"}, "systemPrompt": {"type": "string"}, "stream": {"type": "boolean"}, "model": {"type": "string"}}},
    "ChatResponse": {"type": "object", "properties": {"response": {"type": "string"}}},
    "ModelsResponse": {"type": "object", "properties": {"models": {"type": "array", "items": {"type": "string"}}, "error": {"type": "string"}, "code": {"type": "integer"}}},
    "ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}}
  }
}`
