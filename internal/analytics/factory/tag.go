package factory

import "github.com/smallbiznis/analytics/internal/analytics/domain"

// Tags splits the account's tags into one batch per tag table. Tags on objects without a table are dropped.
func Tags(src Sources) []domain.TagBatch {
	byKind := make(map[domain.ObjectKind][]domain.BusinessTag, len(domain.ObjectKinds))
	for _, tag := range src.Tags {
		kind, ok := domain.ObjectKindFor(tag.ObjectType)
		if !ok {
			continue
		}
		byKind[kind] = append(byKind[kind], domain.BusinessTag{
			FactBase:    src.base(tag.ID, tag.CreatedDate),
			TagRecordID: tag.RecordID,
			ObjectID:    tag.ObjectID.String(),
			ObjectType:  tag.ObjectType,
			Name:        tag.TagDefinitionName,
		})
	}

	batches := make([]domain.TagBatch, 0, len(domain.ObjectKinds))
	for _, kind := range domain.ObjectKinds {
		batches = append(batches, domain.TagBatch{Kind: kind, Rows: byKind[kind]})
	}
	return batches
}

// Fields splits the account's custom fields into one batch per field table.
func Fields(src Sources) []domain.FieldBatch {
	byKind := make(map[domain.ObjectKind][]domain.BusinessField, len(domain.ObjectKinds))
	for _, field := range src.Fields {
		kind, ok := domain.ObjectKindFor(field.ObjectType)
		if !ok {
			continue
		}
		byKind[kind] = append(byKind[kind], domain.BusinessField{
			FactBase:            src.base(field.ID, field.CreatedDate),
			CustomFieldRecordID: field.RecordID,
			ObjectID:            field.ObjectID.String(),
			ObjectType:          field.ObjectType,
			Name:                field.Name,
			Value:               field.Value,
		})
	}

	batches := make([]domain.FieldBatch, 0, len(domain.ObjectKinds))
	for _, kind := range domain.ObjectKinds {
		batches = append(batches, domain.FieldBatch{Kind: kind, Rows: byKind[kind]})
	}
	return batches
}
