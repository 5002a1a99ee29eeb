package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "VirtuLab API",
        "description": "AI-assisted virtual laboratory platform",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Simulations", "description": "Simulation generation and lifecycle"},
        {"name": "Game", "description": "Gamified lab interactions"},
        {"name": "Stats", "description": "Game statistics and leaderboard"},
        {"name": "Notifications", "description": "Notification inbox"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/simulations/generate": {
            "post": {
                "tags": ["Simulations"],
                "summary": "Generate a new simulation from a prompt",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateSimulationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Generation quota reached"}
                }
            }
        },
        "/simulations": {
            "get": {
                "tags": ["Simulations"],
                "summary": "List simulations",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/simulations/{id}": {
            "get": {
                "tags": ["Simulations"],
                "summary": "Get one simulation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/simulations/{id}/state": {
            "put": {
                "tags": ["Simulations"],
                "summary": "Patch the simulation state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StateUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition or completed simulation"},
                    "429": {"description": "Update floor not elapsed"}
                }
            }
        },
        "/simulations/{id}/start": {
            "post": {
                "tags": ["Simulations"],
                "summary": "Start a simulation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/simulations/{id}/pause": {
            "post": {
                "tags": ["Simulations"],
                "summary": "Pause a running simulation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/simulations/{id}/resume": {
            "post": {
                "tags": ["Simulations"],
                "summary": "Resume a paused simulation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/simulations/{id}/complete": {
            "post": {
                "tags": ["Simulations"],
                "summary": "Complete a simulation and finalize its results",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CompleteSimulationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/simulations/{id}/actions": {
            "get": {
                "tags": ["Game"],
                "summary": "List the simulation's processed actions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Game"],
                "summary": "Process one gamified lab action",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProcessActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Simulation is not in progress"}
                }
            }
        },
        "/simulations/{id}/mix": {
            "post": {
                "tags": ["Game"],
                "summary": "Mix two chemicals in the virtual lab",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MixChemicalsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Simulation is not in progress"}
                }
            }
        },
        "/simulations/{id}/hint": {
            "post": {
                "tags": ["Game"],
                "summary": "Request a contextual hint",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/HintRequestPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/me": {
            "get": {
                "tags": ["Stats"],
                "summary": "Aggregate game stats of the authenticated student",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/students/{id}": {
            "get": {
                "tags": ["Stats"],
                "summary": "Aggregate game stats of one student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/leaderboard": {
            "get": {
                "tags": ["Stats"],
                "summary": "Ranked students by cumulative game score",
                "parameters": [
                    {"name": "level", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/parents/children/progress": {
            "get": {
                "tags": ["Stats"],
                "summary": "Progress roll-up for the guardian's linked students",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/parents/children/progress/export": {
            "get": {
                "tags": ["Stats"],
                "summary": "Download the guardian progress roll-up as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the authenticated user's notifications",
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark one notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "GenerateSimulationRequest": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string", "maxLength": 500},
                "subject": {"type": "string", "enum": ["chemistry", "physics", "biology", "general"]},
                "level": {"type": "integer", "minimum": 1, "maximum": 5}
            },
            "required": ["prompt", "subject", "level"]
        },
        "StateUpdateRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["not_started", "in_progress", "paused", "completed"]},
                "currentStep": {"type": "integer"},
                "progress": {"type": "integer", "minimum": 0, "maximum": 100},
                "userInputs": {"type": "object"},
                "observations": {"type": "array", "items": {"type": "object"}},
                "results": {"type": "object"}
            }
        },
        "CompleteSimulationRequest": {
            "type": "object",
            "properties": {
                "results": {"type": "object"}
            }
        },
        "ProcessActionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["use_equipment", "mix_chemicals", "observe", "measure", "place_item", "remove_item"]},
                "equipment": {"type": "string"},
                "target": {"type": "string", "enum": ["beaker", "burette", "measuring", "observation"]},
                "context": {"type": "string"}
            },
            "required": ["action", "equipment", "target"]
        },
        "MixChemicalsRequest": {
            "type": "object",
            "properties": {
                "chemical_a": {"type": "string"},
                "chemical_b": {"type": "string"}
            },
            "required": ["chemical_a", "chemical_b"]
        },
        "HintRequestPayload": {
            "type": "object",
            "properties": {
                "struggling_area": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
