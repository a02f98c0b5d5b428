package helpers

// MaskValue is the default mask used for sensitive fields
const MaskValue = "***********"

// MaskFields returns a copy of data where the named fields are masked.
// Fields absent from data stay absent.
func MaskFields(data map[string]any, fields []string) map[string]any {
	sensitive := make(map[string]bool, len(fields))
	for _, f := range fields {
		sensitive[f] = true
	}

	masked := make(map[string]any, len(data))
	for k, v := range data {
		if sensitive[k] {
			masked[k] = MaskValue
		} else {
			masked[k] = v
		}
	}
	return masked
}
