// Package all wires every built-in run history backend into the storage
// factory. Import it for side effects:
//
//	import _ "github.com/CMSgov/hpt-validator-sub001/internal/storage/all"
//
// after which storage.New accepts the kinds "sqlite", "postgres", "mssql"
// and "mysql". A binary that needs fewer backends can import the backend
// packages it wants instead.
package all

import (
	_ "github.com/CMSgov/hpt-validator-sub001/internal/storage/mssql"
	_ "github.com/CMSgov/hpt-validator-sub001/internal/storage/mysql"
	_ "github.com/CMSgov/hpt-validator-sub001/internal/storage/postgres"
	_ "github.com/CMSgov/hpt-validator-sub001/internal/storage/sqlite"
)
