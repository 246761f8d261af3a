package types

// Resource is an uploaded or attached file/web resource referenced by a
// resource-typed workflow variable.
type Resource struct {
	EntityID   string `json:"entityId"`
	Name       string `json:"name"`
	FileType   string `json:"fileType,omitempty"`
	StorageKey string `json:"storageKey,omitempty"`
}

// ResourceRef is a lightweight, externally supplied resource reference used
// to refresh a resource mention's display name independent of variable
// resolution.
type ResourceRef struct {
	ResourceID   string `json:"resourceId"`
	Title        string `json:"title"`
	ResourceType string `json:"resourceType,omitempty"`
}
