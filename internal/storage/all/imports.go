// Package all links every storage backend into the binary. Import it for its
// side effects:
//
//	import _ "github.com/som4n/DataLake/internal/storage/all"
//
// Each backend registers a Repository factory and a DDL dialect in init, so
// callers stay backend-agnostic:
//
//	repo, err := storage.New(ctx, storage.Config{
//	    Kind:    "mysql",
//	    DSN:     dsn,
//	    Table:   "users",
//	    Columns: []string{"id", "name", "email"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer repo.Close()
package all

import (
	_ "github.com/som4n/DataLake/internal/storage/mssql"
	_ "github.com/som4n/DataLake/internal/storage/mysql"
	_ "github.com/som4n/DataLake/internal/storage/postgres"
	_ "github.com/som4n/DataLake/internal/storage/sqlite"
)
