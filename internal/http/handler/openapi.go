package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"

	"basegraph.app/inference/internal/http/dto"
)

// OpenAPIHandler serves a static OpenAPI 3.1 document describing the
// generation routes. Component schemas are reflected from the DTOs so the
// document cannot drift from the binding rules.
type OpenAPIHandler struct {
	document gin.H
}

type OpenAPIInfo struct {
	Title          string
	Version        string
	HistoryEnabled bool
}

func NewOpenAPIHandler(info OpenAPIInfo) *OpenAPIHandler {
	return &OpenAPIHandler{document: buildOpenAPIDocument(info)}
}

func (h *OpenAPIHandler) Document(c *gin.Context) {
	c.JSON(http.StatusOK, h.document)
}

func reflectSchema(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	schema := reflector.Reflect(v)
	schema.Version = ""
	return schema
}

func jsonContent(schemaName string) gin.H {
	return gin.H{
		"application/json": gin.H{
			"schema": gin.H{"$ref": "#/components/schemas/" + schemaName},
		},
	}
}

func errorResponse(description string) gin.H {
	return gin.H{"description": description, "content": jsonContent("ErrorResponse")}
}

func buildOpenAPIDocument(info OpenAPIInfo) gin.H {
	paths := gin.H{
		"/ai/generate": gin.H{
			"post": gin.H{
				"operationId": "generate",
				"summary":     "Generate a completion for a prompt",
				"requestBody": gin.H{
					"required": true,
					"content":  jsonContent("GenerateRequest"),
				},
				"responses": gin.H{
					"200": gin.H{"description": "Successful Response", "content": jsonContent("GenerateResponse")},
					"400": errorResponse("Validation Error"),
					"429": errorResponse("Rate Limited"),
					"502": errorResponse("Provider Error"),
					"504": errorResponse("Provider Timeout"),
				},
			},
		},
	}

	schemas := gin.H{
		"GenerateRequest":  reflectSchema(&dto.GenerateRequest{}),
		"GenerateResponse": reflectSchema(&dto.GenerateResponse{}),
		"ErrorResponse":    reflectSchema(&dto.ErrorResponse{}),
	}

	if info.HistoryEnabled {
		paths["/ai/generations/{id}"] = gin.H{
			"get": gin.H{
				"operationId": "getGeneration",
				"summary":     "Fetch a recorded generation",
				"parameters": []gin.H{{
					"name":     "id",
					"in":       "path",
					"required": true,
					"schema":   gin.H{"type": "string"},
				}},
				"responses": gin.H{
					"200": gin.H{"description": "Successful Response", "content": jsonContent("GenerationResponse")},
					"400": errorResponse("Invalid ID"),
					"404": errorResponse("Not Found"),
				},
			},
		}
		schemas["GenerationResponse"] = reflectSchema(&dto.GenerationResponse{})
	}

	return gin.H{
		"openapi": "3.1.0",
		"info": gin.H{
			"title":   info.Title,
			"version": info.Version,
		},
		"paths":      paths,
		"components": gin.H{"schemas": schemas},
	}
}
