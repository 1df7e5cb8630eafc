package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`

	stmts := splitStatements(input)

	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Memory", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'a''b' FROM t;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b' FROM t;`))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/backtest")
	require.NoError(t, err)
	assert.Equal(t, "backtest", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := listMigrations(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"001_candidates.sql",
		"002_trade_events.sql",
		"003_skip_records.sql",
		"004_ingest_files.sql",
	}, pg)

	ch, err := listMigrations(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_daily_bars.sql"}, ch)
}
