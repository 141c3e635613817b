package repomanager

import (
	"context"
	"database/sql"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/dbx"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/repositories/entries"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/repositories/outbox"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Outbox(db dbx.DBTX) outbox.Repository
	Entries(db dbx.DBTX) entries.Repository
}
