package template

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"report_wrapper/internal/domain/report"
	sqlinfra "report_wrapper/internal/infrastructure/sql"
	"report_wrapper/internal/logging"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE employees (id INTEGER, name TEXT, salary REAL, hired TEXT, dept TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO employees VALUES
		(1, 'Anna', 1200.5, '2020-01-15', 'sales'),
		(2, 'Boris', 900, '2021-03-01', 'it'),
		(3, 'Vera', 1500, '2019-07-30', 'sales'),
		(4, 'Gleb', 700, '2022-11-11', 'sales')`).Error)
	return db
}

func compileEmployees(t *testing.T) *Compiled {
	t.Helper()
	c, err := CompileSource("employees.yaml", readTestdata(t, "employees.yaml"))
	require.NoError(t, err)
	return c
}

func TestFillLive(t *testing.T) {
	c := compileEmployees(t)
	exec := sqlinfra.NewExecutor(setupTestDB(t))

	p, err := NewFiller(logging.Discard()).Fill(context.Background(), c, nil, Live(exec))
	require.NoError(t, err)

	assert.Equal(t, "Employees of sales", p.Title)
	assert.Equal(t, 3, p.Records)
	require.Equal(t, 2, p.PageCount())
	assert.Equal(t, []string{"ID", "Name", "Salary", "Hired"}, p.Headers())
	assert.Equal(t, report.AlignRight, p.Columns[0].Align)

	first := p.Pages[0]
	assert.Equal(t, "Department sales", first.Header)
	assert.Equal(t, "Page 1 of 2", first.Footer)
	require.Len(t, first.Rows, 2)
	assert.Equal(t, "1", first.Rows[0][0].Text)
	assert.Equal(t, "Anna", first.Rows[0][1].Text)
	assert.Equal(t, "1200.5", first.Rows[0][2].Text)
	assert.Equal(t, "2020-01-15", first.Rows[0][3].Text)
	assert.IsType(t, time.Time{}, first.Rows[0][3].Value)

	assert.Equal(t, "Page 2 of 2", p.Pages[1].Footer)
	assert.Len(t, p.Pages[1].Rows, 1)
	assert.Equal(t, "Total: 3", p.Summary)
}

func TestFillLiveUsesSuppliedParameters(t *testing.T) {
	c := compileEmployees(t)
	exec := sqlinfra.NewExecutor(setupTestDB(t))

	p, err := NewFiller(logging.Discard()).Fill(context.Background(), c,
		report.Parameters{"dept": "it", "unused": 1}, Live(exec))
	require.NoError(t, err)

	assert.Equal(t, "Employees of it", p.Title)
	assert.Equal(t, 1, p.Records)
	assert.Equal(t, "Boris", p.Rows()[0][1].Text)
}

func TestFillLiveMissingField(t *testing.T) {
	src := `
name: broken
query: SELECT id FROM employees
fields: [{name: id, type: integer}, {name: email, type: text}]
columns: [{expression: '$F{email}'}]
`
	c, err := CompileSource("broken.yaml", []byte(src))
	require.NoError(t, err)

	_, err = NewFiller(logging.Discard()).Fill(context.Background(), c, nil, Live(sqlinfra.NewExecutor(setupTestDB(t))))
	assert.ErrorContains(t, err, `field "email" is missing`)
}

func TestFillLiveWithoutQuery(t *testing.T) {
	c, err := CompileSource("static.yaml", []byte("name: static\ncolumns: [{expression: '1'}]\n"))
	require.NoError(t, err)

	_, err = NewFiller(logging.Discard()).Fill(context.Background(), c, nil, Live(sqlinfra.NewExecutor(setupTestDB(t))))
	assert.Error(t, err)
}

func TestFillEmptySource(t *testing.T) {
	c := compileEmployees(t)

	p, err := NewFiller(logging.Discard()).Fill(context.Background(), c, nil, Empty(PlaceholderRecords))
	require.NoError(t, err)

	assert.Equal(t, PlaceholderRecords, p.Records)
	assert.Len(t, p.Rows(), PlaceholderRecords)
	assert.Equal(t, 25, p.PageCount())
	for _, row := range p.Rows() {
		for _, cell := range row {
			assert.Nil(t, cell.Value)
			assert.Empty(t, cell.Text)
		}
	}
	assert.Equal(t, "Total: 50", p.Summary)
}

func TestFillBadParameter(t *testing.T) {
	c := compileEmployees(t)

	_, err := NewFiller(logging.Discard()).Fill(context.Background(), c,
		report.Parameters{"minSalary": "lots"}, Empty(1))
	assert.ErrorContains(t, err, "minSalary")
}

func TestFillCanceledContext(t *testing.T) {
	c := compileEmployees(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFiller(logging.Discard()).Fill(ctx, c, nil, Empty(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(TypeInteger, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = Coerce(TypeFloat, []byte("2.5"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	v, err = Coerce(TypeBoolean, "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Coerce(TypeDate, "2024-02-29 13:45:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), v)

	v, err = Coerce(TypeInteger, "  ")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Coerce(TypeInteger, "x")
	assert.Error(t, err)
}

func TestCoerceIntegerIsDecimal(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{"010", 10},
		{"08", 8},
		{"09", 9},
		{"0", 0},
		{"000", 0},
		{"-007", -7},
		{"+012", 12},
		{" 0042 ", 42},
		{[]byte("010"), 10},
		{int32(10), 10},
	}
	for _, tt := range tests {
		v, err := Coerce(TypeInteger, tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, v, "%v", tt.in)
	}

	for _, in := range []string{"0x1F", "0o17", "0b101", "1.5e3"} {
		_, err := Coerce(TypeInteger, in)
		assert.Error(t, err, in)
	}
}

func TestEmptySourceProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("empty source fills exactly count records", prop.ForAll(
		func(count, size int) bool {
			def := Definition{
				Name:     "prop",
				Fields:   []Field{{Name: "a", Type: TypeText}},
				Columns:  []Column{{Header: "A", Expression: "$F{a}"}},
				PageSize: size,
			}
			data, err := yamlBytes(def)
			if err != nil {
				return false
			}
			c, err := CompileSource("prop.yaml", data)
			if err != nil {
				return false
			}

			p, err := NewFiller(logging.Discard()).Fill(context.Background(), c, nil, Empty(count))
			if err != nil {
				return false
			}

			wantPages := (count + size - 1) / size
			if wantPages == 0 {
				wantPages = 1
			}
			return p.Records == count && len(p.Rows()) == count && p.PageCount() == wantPages
		},
		gen.IntRange(0, 300),
		gen.IntRange(1, 60),
	))

	properties.TestingRun(t)
}
