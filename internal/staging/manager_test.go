package staging

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ageloader/batchloader/internal/executor"
	"github.com/ageloader/batchloader/internal/executor/executortest"
	"github.com/ageloader/batchloader/internal/graphdata"
)

func TestStoreEnsuresTableThenUpserts(t *testing.T) {
	fake := executortest.New()
	fake.OnSQL("CREATE TEMP TABLE", func() (executor.Rows, error) { return executortest.NewRows(), nil })
	fake.OnSQL("INSERT INTO "+TableName, func() (executor.Rows, error) { return executortest.NewRows(), nil })

	m := NewManager(fake, zerolog.Nop())
	err := m.Store(context.Background(), "vertex_Person", []*graphdata.PropertyBag{graphdata.NewPropertyBag()})
	require.NoError(t, err)

	require.Len(t, fake.Calls, 2)
	require.Contains(t, fake.Calls[0].Text, "CREATE TEMP TABLE")
	require.Contains(t, fake.Calls[1].Text, "ON CONFLICT (key) DO UPDATE")
}

func TestStoreOnlyEnsuresTableOnce(t *testing.T) {
	fake := executortest.New()
	fake.OnSQL("CREATE TEMP TABLE", func() (executor.Rows, error) { return executortest.NewRows(), nil })
	fake.OnSQL("INSERT INTO "+TableName, func() (executor.Rows, error) { return executortest.NewRows(), nil })

	m := NewManager(fake, zerolog.Nop())
	require.NoError(t, m.Store(context.Background(), "vertex_Person", nil))
	require.NoError(t, m.Store(context.Background(), "vertex_Company", nil))

	creates := 0
	for _, c := range fake.Calls {
		if c.Kind == "sql" && strings.Contains(c.Text, "CREATE TEMP TABLE") {
			creates++
		}
	}
	require.Equal(t, 1, creates)
}

func TestClearDeletesKey(t *testing.T) {
	fake := executortest.New()
	m := NewManager(fake, zerolog.Nop())
	require.NoError(t, m.Clear(context.Background(), "vertex_Person"))
	require.Contains(t, fake.Calls[0].Text, "DELETE FROM "+TableName)
	require.Equal(t, []interface{}{"vertex_Person"}, fake.Calls[0].Params)
}
