// Package docs registers the OpenAPI description served at /swagger/.
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
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "in": "header", "name": "X-API-Key"}
    },
    "security": [{"ApiKeyAuth": []}],
    "paths": {
        "/sync": {
            "post": {
                "summary": "Apply a batch of offline changes",
                "description": "Replays with the same idempotency key return the stored outcome byte for byte and set X-Idempotent-Replay.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "header", "name": "X-Device-ID", "type": "string", "required": true},
                    {"in": "header", "name": "X-User-ID", "type": "string", "required": true},
                    {"in": "header", "name": "X-Tenant-ID", "type": "string", "required": true},
                    {"in": "body", "name": "batch", "required": true, "schema": {"$ref": "#/definitions/BatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-item outcome", "schema": {"$ref": "#/definitions/BatchOutcome"}},
                    "400": {"description": "Malformed batch", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Idempotency key in use or reused with another payload", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "Resource exhausted, honour Retry-After", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "503": {"description": "Unavailable, retry as-is", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/uploads/init": {
            "post": {
                "summary": "Start a resumable upload",
                "parameters": [{"in": "body", "name": "upload", "required": true, "schema": {"$ref": "#/definitions/InitUploadRequest"}}],
                "responses": {"201": {"description": "Session created"}, "400": {"description": "Invalid request"}}
            }
        },
        "/uploads/{uploadID}/chunk/{index}": {
            "post": {
                "summary": "Upload one chunk",
                "consumes": ["application/octet-stream"],
                "parameters": [
                    {"in": "path", "name": "uploadID", "type": "string", "required": true},
                    {"in": "path", "name": "index", "type": "integer", "required": true},
                    {"in": "header", "name": "X-Chunk-Checksum", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "Chunk stored"}, "410": {"description": "Session expired"}, "422": {"description": "Checksum mismatch"}}
            }
        },
        "/uploads/{uploadID}/status": {
            "get": {
                "summary": "Received and missing chunks",
                "parameters": [{"in": "path", "name": "uploadID", "type": "string", "required": true}],
                "responses": {"200": {"description": "Upload status"}, "404": {"description": "Unknown session"}}
            }
        },
        "/uploads/{uploadID}/finalize": {
            "post": {
                "summary": "Assemble and verify the file",
                "parameters": [{"in": "path", "name": "uploadID", "type": "string", "required": true}],
                "responses": {"200": {"description": "File reference"}, "400": {"description": "Chunks missing"}, "422": {"description": "File hash mismatch"}}
            }
        },
        "/uploads/{uploadID}": {
            "delete": {
                "summary": "Cancel an upload",
                "parameters": [{"in": "path", "name": "uploadID", "type": "string", "required": true}],
                "responses": {"204": {"description": "Cancelled"}}
            }
        },
        "/admin/policies": {
            "get": {"summary": "List tenant policies", "parameters": [{"in": "query", "name": "tenant_id", "type": "string", "required": true}], "responses": {"200": {"description": "Policies"}}},
            "put": {"summary": "Create or replace a policy", "parameters": [{"in": "body", "name": "policy", "required": true, "schema": {"$ref": "#/definitions/ConflictPolicy"}}], "responses": {"200": {"description": "Stored policy"}}}
        },
        "/admin/policies/effective": {
            "get": {"summary": "Policy applied to a tenant and domain", "responses": {"200": {"description": "Effective policy"}}}
        },
        "/admin/policies/invalidate": {
            "post": {"summary": "Drop cached policies", "responses": {"204": {"description": "Invalidated"}}}
        },
        "/admin/policies/cache": {
            "get": {"summary": "Policy cache statistics", "responses": {"200": {"description": "Cache stats"}}}
        },
        "/admin/conflicts": {
            "get": {"summary": "List logged conflicts", "responses": {"200": {"description": "Conflicts"}}}
        },
        "/admin/conflicts/{conflictID}": {
            "get": {"summary": "Get one conflict", "parameters": [{"in": "path", "name": "conflictID", "type": "string", "required": true}], "responses": {"200": {"description": "Conflict"}, "404": {"description": "Not found"}}}
        },
        "/admin/conflicts/{conflictID}/resolve": {
            "post": {"summary": "Resolve a pending conflict", "parameters": [{"in": "path", "name": "conflictID", "type": "string", "required": true}], "responses": {"200": {"description": "Resolution"}, "409": {"description": "Already resolved"}}}
        },
        "/admin/devices/{userID}": {
            "get": {"summary": "Device health for a user", "parameters": [{"in": "path", "name": "userID", "type": "string", "required": true}], "responses": {"200": {"description": "Devices"}}}
        },
        "/admin/analytics": {
            "get": {"summary": "Hourly sync snapshots", "responses": {"200": {"description": "Snapshots"}}}
        },
        "/admin/events": {
            "get": {"summary": "Live event stream (SSE)", "produces": ["text/event-stream"], "responses": {"200": {"description": "Stream"}}}
        },
        "/admin/events/log": {
            "get": {"summary": "Persisted event log", "responses": {"200": {"description": "Events"}}}
        }
    },
    "definitions": {
        "SyncItem": {
            "type": "object",
            "required": ["domain", "mobile_id"],
            "properties": {
                "domain": {"type": "string"},
                "mobile_id": {"type": "string"},
                "version": {"type": "integer"},
                "fields": {"type": "object"},
                "client_timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "BatchRequest": {
            "type": "object",
            "required": ["idempotency_key", "items"],
            "properties": {
                "idempotency_key": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/SyncItem"}},
                "metadata": {"type": "object"}
            }
        },
        "BatchOutcome": {
            "type": "object",
            "properties": {
                "idempotency_key": {"type": "string"},
                "synced_items": {"type": "integer"},
                "failed_items": {"type": "integer"},
                "conflicts": {"type": "array", "items": {"type": "object"}},
                "errors": {"type": "array", "items": {"type": "object"}},
                "results": {"type": "array", "items": {"type": "object"}}
            }
        },
        "InitUploadRequest": {
            "type": "object",
            "required": ["filename", "total_size", "file_hash"],
            "properties": {
                "filename": {"type": "string"},
                "total_size": {"type": "integer"},
                "file_hash": {"type": "string"},
                "mime_type": {"type": "string"}
            }
        },
        "ConflictPolicy": {
            "type": "object",
            "required": ["tenant_id", "domain", "resolution_strategy"],
            "properties": {
                "tenant_id": {"type": "string"},
                "domain": {"type": "string"},
                "resolution_strategy": {"type": "string", "enum": ["client_wins", "server_wins", "most_recent_wins", "preserve_escalation", "manual"]},
                "auto_resolve": {"type": "boolean"},
                "notify_on_conflict": {"type": "boolean"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "retryable": {"type": "boolean"},
                "fields": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "mobilesync API",
	Description:      "Offline-first sync backend for mobile devices.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
