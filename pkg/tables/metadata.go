package tables

import "github.com/apache/arrow/go/v18/arrow"

const (
	comment = "comment"

	// RunIdKey and CreatedAtKey are schema-level metadata keys stamped on
	// every persisted modeling table.
	RunIdKey     = "run_id"
	CreatedAtKey = "created_at"
)

// MetadataBuilder is a convenience type to aid readability of code that
// specifies metadata for Arrow types.
type MetadataBuilder struct {
	keys   []string
	values []string
}

func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{}
}

// Add appends a key, replacing the value if the key was already added.
func (b *MetadataBuilder) Add(key, value string) *MetadataBuilder {
	for i, k := range b.keys {
		if k == key {
			b.values[i] = value
			return b
		}
	}
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
	return b
}

// Comment is shorthand for Add("comment", value).
func (b *MetadataBuilder) Comment(value string) *MetadataBuilder {
	return b.Add(comment, value)
}

// Merge copies every entry of md into the builder.
func (b *MetadataBuilder) Merge(md arrow.Metadata) *MetadataBuilder {
	for i, key := range md.Keys() {
		b.Add(key, md.Values()[i])
	}
	return b
}

// Build constructs and returns the arrow.Metadata.
func (b *MetadataBuilder) Build() arrow.Metadata {
	return arrow.NewMetadata(b.keys, b.values)
}

// BuildReference constructs and returns the arrow.Metadata result as a
// reference.
func (b *MetadataBuilder) BuildReference() *arrow.Metadata {
	result := b.Build()
	return &result
}

// Comment returns the comment attached to a field, if any.
func Comment(field arrow.Field) string {
	i := field.Metadata.FindKey(comment)
	if i < 0 {
		return ""
	}
	return field.Metadata.Values()[i]
}
