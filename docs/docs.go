// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/server/main.go`.
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
        "/credits/account": {"post": {"security": [{"Bearer": []}], "tags": ["credits"], "summary": "Open a credit account", "responses": {"201": {"description": "Account opened", "schema": {"$ref": "#/definitions/common.Response"}}}}},
        "/credits/balance": {"get": {"security": [{"Bearer": []}], "tags": ["credits"], "summary": "Get credit balance", "responses": {"200": {"description": "Balance fetched", "schema": {"$ref": "#/definitions/common.Response"}}, "404": {"description": "Account not found", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}}}},
        "/credits/transactions": {"get": {"security": [{"Bearer": []}], "tags": ["credits"], "summary": "List credit transactions", "parameters": [{"type": "integer", "name": "limit", "in": "query"}, {"type": "integer", "name": "offset", "in": "query"}], "responses": {"200": {"description": "Transactions fetched", "schema": {"$ref": "#/definitions/common.Response"}}}}},
        "/credits/stats": {"get": {"security": [{"Bearer": []}], "tags": ["credits"], "summary": "Get earning stats", "responses": {"200": {"description": "Stats fetched", "schema": {"$ref": "#/definitions/common.Response"}}}}},
        "/credits/spend": {"post": {"security": [{"Bearer": []}], "tags": ["credits"], "summary": "Spend credits", "responses": {"200": {"description": "Credits spent", "schema": {"$ref": "#/definitions/common.Response"}}, "400": {"description": "Insufficient credits", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}}}},
        "/conversions": {"post": {"security": [{"Bearer": []}], "tags": ["conversions"], "summary": "Request a crypto conversion", "responses": {"201": {"description": "Conversion requested", "schema": {"$ref": "#/definitions/common.Response"}}, "400": {"description": "Rejected", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}}}},
        "/conversions/rates": {"get": {"security": [{"Bearer": []}], "tags": ["conversions"], "summary": "Get conversion rates", "responses": {"200": {"description": "Rates fetched", "schema": {"$ref": "#/definitions/common.Response"}}}}},
        "/conversions/{id}": {"get": {"security": [{"Bearer": []}], "tags": ["conversions"], "summary": "Get conversion status", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Conversion fetched", "schema": {"$ref": "#/definitions/common.Response"}}, "404": {"description": "Conversion not found", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}}}},
        "/internal/conversions": {"get": {"security": [{"InternalKey": []}], "tags": ["internal"], "summary": "List pending conversions", "responses": {"200": {"description": "Conversions fetched", "schema": {"$ref": "#/definitions/common.Response"}}}}},
        "/internal/conversions/rates": {"put": {"security": [{"InternalKey": []}], "tags": ["internal"], "summary": "Update conversion rates", "responses": {"200": {"description": "Rates updated", "schema": {"$ref": "#/definitions/common.Response"}}}}},
        "/internal/conversions/{id}/confirm": {"post": {"security": [{"InternalKey": []}], "tags": ["internal"], "summary": "Confirm a conversion", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Conversion confirmed", "schema": {"$ref": "#/definitions/common.Response"}}, "409": {"description": "Already settled", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}}}},
        "/internal/conversions/{id}/fail": {"post": {"security": [{"InternalKey": []}], "tags": ["internal"], "summary": "Fail a conversion", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "Conversion failed and refunded", "schema": {"$ref": "#/definitions/common.Response"}}}}},
        "/internal/rewards/events": {"post": {"security": [{"InternalKey": []}], "tags": ["internal"], "summary": "Submit a reward event", "responses": {"200": {"description": "Event processed", "schema": {"$ref": "#/definitions/common.Response"}}, "400": {"description": "Invalid or unknown event", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}}}}
    },
    "definitions": {
        "common.ProblemDetails": {"type": "object", "properties": {"detail": {"type": "string"}, "errors": {}, "instance": {"type": "string"}, "status": {"type": "integer"}, "title": {"type": "string"}, "type": {"type": "string"}}},
        "common.Response": {"type": "object", "properties": {"data": {}, "message": {"type": "string"}, "status": {"type": "integer"}}}
    },
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"},
        "InternalKey": {"type": "apiKey", "name": "X-Internal-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Skill Credits API",
	Description:      "Credit ledger, earning rules and crypto conversion",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
