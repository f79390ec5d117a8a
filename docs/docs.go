// Package docs holds the OpenAPI description of the HTTP API, served by
// gin-swagger under /swagger.
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
        "/sessions": {
            "post": {
                "summary": "Start a filter session, optionally seeded with a selection",
                "tags": ["sessions"],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Session view"},
                    "400": {"description": "Invalid request body"},
                    "503": {"description": "Catalog unavailable"}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "summary": "Read a session and load its pricing",
                "tags": ["sessions"],
                "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/SessionID"}],
                "responses": {
                    "200": {"description": "Session view"},
                    "404": {"description": "Session not found"}
                }
            },
            "delete": {
                "summary": "End a session",
                "tags": ["sessions"],
                "parameters": [{"$ref": "#/parameters/SessionID"}],
                "responses": {
                    "200": {"description": "Session deleted"},
                    "404": {"description": "Session not found"}
                }
            }
        },
        "/sessions/{id}/country": {
            "put": {
                "summary": "Select a country",
                "tags": ["sessions"],
                "parameters": [
                    {"$ref": "#/parameters/SessionID"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SetCountryRequest"}}
                ],
                "responses": {
                    "200": {"description": "Session view"},
                    "400": {"description": "Option not available"},
                    "404": {"description": "Session not found"}
                }
            }
        },
        "/sessions/{id}/package": {
            "put": {
                "summary": "Select a package",
                "tags": ["sessions"],
                "parameters": [
                    {"$ref": "#/parameters/SessionID"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SetPackageRequest"}}
                ],
                "responses": {
                    "200": {"description": "Session view"},
                    "400": {"description": "Option not available"},
                    "404": {"description": "Session not found"}
                }
            }
        },
        "/sessions/{id}/departure": {
            "put": {
                "summary": "Select a departure point",
                "tags": ["sessions"],
                "parameters": [
                    {"$ref": "#/parameters/SessionID"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SetDeparturePointRequest"}}
                ],
                "responses": {
                    "200": {"description": "Session view"},
                    "400": {"description": "Option not available"},
                    "404": {"description": "Session not found"}
                }
            }
        },
        "/sessions/{id}/party-size": {
            "put": {
                "summary": "Select a party size",
                "tags": ["sessions"],
                "parameters": [
                    {"$ref": "#/parameters/SessionID"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SetPartySizeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Session view"},
                    "400": {"description": "Option not available"},
                    "404": {"description": "Session not found"}
                }
            }
        },
        "/sessions/{id}/refetch": {
            "post": {
                "summary": "Reload the pricing of the current file id",
                "tags": ["sessions"],
                "parameters": [{"$ref": "#/parameters/SessionID"}],
                "responses": {
                    "200": {"description": "Session view"},
                    "404": {"description": "Session not found"},
                    "409": {"description": "No file id selected"}
                }
            }
        },
        "/catalog": {
            "get": {
                "summary": "Package catalog with countries and file id combinations",
                "tags": ["catalog"],
                "responses": {
                    "200": {"description": "Catalog"},
                    "503": {"description": "Catalog unavailable"}
                }
            }
        },
        "/catalog/reload": {
            "post": {
                "summary": "Reload the catalog and drop cached existence checks",
                "tags": ["catalog"],
                "responses": {
                    "200": {"description": "Catalog"},
                    "502": {"description": "Data source unreachable"},
                    "422": {"description": "Malformed catalog"}
                }
            }
        },
        "/pricing/{fileId}": {
            "get": {
                "summary": "Load the pricing model of one data file",
                "tags": ["data"],
                "parameters": [{"$ref": "#/parameters/FileID"}],
                "responses": {
                    "200": {"description": "Pricing model"},
                    "400": {"description": "Invalid file id"},
                    "422": {"description": "Malformed data file"},
                    "502": {"description": "Data source unreachable"}
                }
            }
        },
        "/offers/{fileId}": {
            "get": {
                "summary": "Resolve the offer page of one data file",
                "tags": ["data"],
                "parameters": [{"$ref": "#/parameters/FileID"}],
                "responses": {
                    "200": {"description": "Offer links"},
                    "400": {"description": "Invalid file id"},
                    "404": {"description": "No package matches"}
                }
            }
        }
    },
    "parameters": {
        "SessionID": {"in": "path", "name": "id", "type": "string", "format": "uuid", "required": true},
        "FileID": {"in": "path", "name": "fileId", "type": "string", "required": true}
    },
    "definitions": {
        "CreateSessionRequest": {
            "type": "object",
            "properties": {
                "country": {"type": "string"},
                "package": {"type": "string"},
                "departure_point": {"type": "string"},
                "party_size": {"type": "integer", "minimum": 1}
            }
        },
        "SetCountryRequest": {
            "type": "object",
            "required": ["country"],
            "properties": {"country": {"type": "string"}}
        },
        "SetPackageRequest": {
            "type": "object",
            "required": ["package"],
            "properties": {"package": {"type": "string"}}
        },
        "SetDeparturePointRequest": {
            "type": "object",
            "required": ["departure_point"],
            "properties": {"departure_point": {"type": "string"}}
        },
        "SetPartySizeRequest": {
            "type": "object",
            "required": ["party_size"],
            "properties": {"party_size": {"type": "integer", "minimum": 1}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "pricewatch API",
	Description:      "Filter sessions over travel package price histories.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
