package metadata

// Metadata represents the broker headers carried alongside a published
// operation-log event. The event payload itself stays the single source of
// truth; headers only duplicate the identifiers that routing and tracing
// infrastructure needs without decoding the payload.
type Metadata map[string]string

// Standard header keys set by the operate logger.
const (
	KeyOperationID   = "oplog_operation_id"
	KeyEventSchema   = "oplog_event_schema"
	KeyApplication   = "oplog_application"
	KeyEnvironment   = "oplog_environment"
	KeyCorrelationID = "oplog_correlation_id"
)

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// WithNonEmpty returns a cloned metadata map with the pair added only when
// value is non-empty; empty optional fields never become empty headers.
func (m Metadata) WithNonEmpty(key, value string) Metadata {
	if value == "" {
		return m.Clone()
	}
	return m.With(key, value)
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}
