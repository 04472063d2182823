package log

// Common field names for structured logging
const (
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldSessionID   = "session_id"
	FieldLoadSeq     = "load_seq"
	FieldExportRef   = "export_ref"
	FieldRecordCount = "record_count"
)

// Operations defines standard operation names
const (
	OpLoad   = "load"
	OpLogin  = "login"
	OpLogout = "logout"
	OpExport = "export"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPeriod adds year and month fields
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithExportRef adds the report reference returned by a writer
func (f LogFields) WithExportRef(ref string) LogFields {
	f[FieldExportRef] = ref
	return f
}

// WithRecordCount adds the number of records involved
func (f LogFields) WithRecordCount(n int) LogFields {
	f[FieldRecordCount] = n
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
