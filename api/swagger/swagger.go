package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Skill API",
        "description": "Voice skill answering class timetable questions, with a registration form and JSON API.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Skill", "description": "Voice platform webhook"},
        {"name": "Timetable", "description": "Per-user weekly timetable"}
    ],
    "paths": {
        "/skill": {
            "post": {
                "tags": ["Skill"],
                "summary": "Answer a voice request",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SkillRequest"}}
                ],
                "responses": {
                    "200": {"description": "Voice response", "schema": {"$ref": "#/definitions/SkillResponse"}},
                    "400": {"description": "Malformed envelope", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Addressed to another skill", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{uid}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get a timetable",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/UID"},
                    {"$ref": "#/parameters/Token"}
                ],
                "responses": {
                    "200": {"description": "Timetable", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "401": {"description": "Invalid link token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown uid", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Timetable"],
                "summary": "Replace a timetable",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/UID"},
                    {"$ref": "#/parameters/Token"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ReplaceTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored timetable", "schema": {"$ref": "#/definitions/TimetableEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{uid}/answer": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Preview the spoken answer for a query",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/UID"},
                    {"$ref": "#/parameters/Token"},
                    {"in": "query", "name": "when", "type": "string", "description": "today, tomorrow or day after tomorrow"},
                    {"in": "query", "name": "day", "type": "string", "description": "Weekday name"},
                    {"in": "query", "name": "period", "type": "string", "description": "Period, e.g. 3 or 3rd period"}
                ],
                "responses": {
                    "200": {"description": "Answer", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{uid}/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Download a timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/UID"},
                    {"$ref": "#/parameters/Token"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "UID": {"in": "path", "name": "uid", "required": true, "type": "string", "description": "Timetable ID"},
        "Token": {"in": "query", "name": "token", "type": "string", "description": "Link token, required when link signing is enabled"}
    },
    "definitions": {
        "SkillRequest": {
            "type": "object",
            "properties": {
                "version": {"type": "string"},
                "session": {"type": "object"},
                "context": {"type": "object"},
                "request": {
                    "type": "object",
                    "properties": {
                        "type": {"type": "string", "enum": ["LaunchRequest", "IntentRequest", "SessionEndedRequest"]},
                        "locale": {"type": "string"},
                        "intent": {
                            "type": "object",
                            "properties": {
                                "name": {"type": "string"},
                                "slots": {"type": "object"}
                            }
                        }
                    }
                }
            }
        },
        "SkillResponse": {
            "type": "object",
            "properties": {
                "version": {"type": "string"},
                "response": {
                    "type": "object",
                    "properties": {
                        "outputSpeech": {
                            "type": "object",
                            "properties": {
                                "type": {"type": "string"},
                                "text": {"type": "string"}
                            }
                        },
                        "card": {
                            "type": "object",
                            "properties": {
                                "type": {"type": "string"},
                                "title": {"type": "string"},
                                "content": {"type": "string"}
                            }
                        },
                        "shouldEndSession": {"type": "boolean"}
                    }
                }
            }
        },
        "Schedule": {
            "type": "object",
            "description": "Day key (Mon..Sun) to period number to subject",
            "additionalProperties": {
                "type": "object",
                "additionalProperties": {"type": "string"}
            }
        },
        "ReplaceTimetableRequest": {
            "type": "object",
            "required": ["schedule"],
            "properties": {
                "schedule": {"$ref": "#/definitions/Schedule"}
            }
        },
        "Timetable": {
            "type": "object",
            "properties": {
                "uid": {"type": "string"},
                "days": {"type": "array", "items": {"type": "string"}},
                "max_period": {"type": "integer"},
                "schedule": {"$ref": "#/definitions/Schedule"}
            }
        },
        "TimetableEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/Timetable"}
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
