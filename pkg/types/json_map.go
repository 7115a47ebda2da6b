package types

// JSONMap is a free-form JSON object persisted through the gorm json serializer.
type JSONMap map[string]any
