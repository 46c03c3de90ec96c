package simplepublishing

// ProjectForStore produces the store-facing representation of a content
// item. The live projection strips access-restriction metadata; everything
// the serving tier needs and nothing it must not see.
func ProjectForStore(item *ContentItem, store StoreName) map[string]interface{} {
	projection := map[string]interface{}{
		"content_id":          item.ContentID.String(),
		"locale":              item.Locale,
		"base_path":           item.BasePath,
		"schema_name":         item.SchemaName,
		"document_type":       item.DocumentType,
		"title":               item.Title,
		"publishing_app":      item.PublishingApp,
		"rendering_app":       item.RenderingApp,
		"user_facing_version": item.UserFacingVersion,
	}
	if item.Description != "" {
		projection["description"] = item.Description
	}
	if item.Details != nil {
		projection["details"] = item.Details
	}
	if len(item.Routes) > 0 {
		projection["routes"] = item.Routes
	}
	if len(item.Redirects) > 0 {
		projection["redirects"] = item.Redirects
	}
	if item.UpdateType != "" {
		projection["update_type"] = string(item.UpdateType)
	}
	if item.PublicUpdatedAt != nil {
		projection["public_updated_at"] = item.PublicUpdatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	if store == StoreDraft && item.AccessLimited != nil {
		projection["access_limited"] = item.AccessLimited
	}
	return projection
}
