package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance Analyzer API",
        "description": "Per-subject attendance analytics with threshold projections",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attendance", "description": "Attendance analytics and report history"},
        {"name": "System", "description": "Health and runtime metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["System"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["System"],
                "summary": "Runtime metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/analyze": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Analyze attendance rows",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnalyzeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Analytics result, or no_data failure with error.code NO_DATA", "schema": {"$ref": "#/definitions/AnalyticsEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid row data", "schema": {"$ref": "#/definitions/AnalyticsEnvelope"}},
                    "503": {"description": "Report history unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/analyze/csv": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Analyze an attendance CSV export",
                "consumes": ["text/csv", "multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "description": "CSV with subject_name,total_classes,attended_classes"},
                    {"name": "thresholds", "in": "query", "type": "string", "description": "Comma separated ratios, e.g. 0.6,0.75"},
                    {"name": "label", "in": "query", "type": "string"},
                    {"name": "save", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AnalyticsEnvelope"}},
                    "400": {"description": "Invalid CSV or parameters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid row data", "schema": {"$ref": "#/definitions/AnalyticsEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/reports": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List stored attendance reports",
                "parameters": [
                    {"name": "label", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "History disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/reports/{id}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Get a stored attendance report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Attendance"],
                "summary": "Delete a stored attendance report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/reports/{id}/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Download a stored attendance report as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "subject,total,attended,percentage,threshold,needed,can_miss rows", "schema": {"type": "file"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AttendanceRow": {
            "type": "object",
            "properties": {
                "subject_name": {"type": "string", "example": "Physics-Lab"},
                "total_classes": {"type": "string", "example": "20", "description": "Integer or integer string"},
                "attended_classes": {"type": "string", "example": "10", "description": "Integer or integer string"}
            }
        },
        "AnalyzeRequest": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/AttendanceRow"}},
                "thresholds": {"type": "array", "items": {"type": "number"}, "example": [0.6, 0.75]},
                "save": {"type": "boolean"}
            }
        },
        "SubjectReport": {
            "type": "object",
            "description": "Also carries needed_<P> and can_miss_<P> integers per threshold, e.g. needed_75",
            "properties": {
                "subject": {"type": "string"},
                "total": {"type": "integer"},
                "attended": {"type": "integer"},
                "percentage": {"type": "string", "example": "85.00"}
            },
            "additionalProperties": {"type": "integer"}
        },
        "AnalyticsResult": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["success", "error"]},
                "subjects": {"type": "array", "items": {"$ref": "#/definitions/SubjectReport"}},
                "overall": {"$ref": "#/definitions/SubjectReport"},
                "message": {"type": "string"}
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
        "AnalyticsEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/AnalyticsResult"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
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
