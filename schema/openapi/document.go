package openapi

import (
	"fmt"
	"sort"
	"strings"
)

// buildDocument wraps schema into a complete OpenAPI document with the
// configured info block and a single request operation carrying the schema.
func buildDocument(config generatorConfig, schema map[string]any) (map[string]any, error) {
	document := map[string]any{
		"openapi": config.openAPIVersion,
		"info":    buildInfo(config),
		"paths":   buildPaths(config, schema),
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func buildInfo(config generatorConfig) map[string]any {
	info := map[string]any{
		"title":   config.info.Title,
		"version": config.info.Version,
	}
	if config.info.Description != "" {
		info["description"] = config.info.Description
	}
	return info
}

func buildPaths(config generatorConfig, schema map[string]any) map[string]any {
	method := strings.ToLower(config.operation.Method)
	if method == "" {
		method = "post"
	}

	content := map[string]any{
		config.contentType: map[string]any{
			"schema": schema,
		},
	}

	responses := make(map[string]any, len(config.responses))
	statuses := make([]string, 0, len(config.responses))
	for status := range config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		resp := config.responses[status]
		responses[status] = map[string]any{
			"description": resp.Description,
		}
	}

	operation := map[string]any{
		"operationId": operationID(config),
		"requestBody": map[string]any{
			"required": true,
			"content":  content,
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(config.operation.Summary); summary != "" {
		operation["summary"] = summary
	}

	return map[string]any{
		config.operation.Path: map[string]any{
			method: operation,
		},
	}
}

func operationID(config generatorConfig) string {
	if config.operation.OperationID != "" {
		return config.operation.OperationID
	}
	method := strings.ToLower(config.operation.Method)
	if method == "" {
		method = "post"
	}
	return fmt.Sprintf("%s:%s", method, config.operation.Path)
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			requestBody, _ := operation["requestBody"].(map[string]any)
			if requestBody == nil {
				return fmt.Errorf("openapi: operation %s %s missing requestBody", method, pathKey)
			}
			content, _ := requestBody["content"].(map[string]any)
			if len(content) == 0 {
				return fmt.Errorf("openapi: operation %s %s requestBody missing content", method, pathKey)
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
