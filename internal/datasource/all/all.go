// Package all registers every built-in loader scheme with system.Default.
// Import it for side effects:
//
//	import _ "tabular/internal/datasource/all"
//
// Schemes: file, http, https, s3, multipart, buffer, filelike.
package all

import (
	_ "tabular/internal/datasource/file"
	_ "tabular/internal/datasource/httpds"
	_ "tabular/internal/datasource/memory"
	_ "tabular/internal/datasource/multipart"
	_ "tabular/internal/datasource/s3"
)
