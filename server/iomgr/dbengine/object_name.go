package dbengine

// maxDatabaseObjectNameLength bounds table, column, constraint and database
// names.
const maxDatabaseObjectNameLength = 255

// isValidDatabaseObjectName reports whether name satisfies the object name
// grammar: an ASCII letter or underscore followed by ASCII letters, digits
// and underscores, within the length bound. Names are case-sensitive.
func isValidDatabaseObjectName(name string) bool {
	if len(name) == 0 || len(name) > maxDatabaseObjectNameLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
