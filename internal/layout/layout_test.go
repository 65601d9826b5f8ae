package layout

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsheet/internal/core"
	"finsheet/internal/sheets"
)

func TestColumns(t *testing.T) {
	assert.Equal(t, 0, ColumnIndexOf(FieldDate))
	assert.Equal(t, 7, ColumnIndexOf(FieldDescription))
	assert.Equal(t, 1, BalanceColumn(core.USD))
	assert.Equal(t, 4, DeltaColumn(core.EUR))
	assert.Equal(t, 6, DeltaColumn(core.RUB))
	assert.Equal(t, 3, ExpenseColumn(core.RUB))
	assert.Equal(t, 4, IncomeColumn(core.USD))
	assert.Equal(t, "C14", A1(13, 2))
}

func TestPartitionLabelUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	at := time.Date(2024, time.February, 29, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, "February 2024", PartitionLabel(at))
	assert.Equal(t, "March 2024", PartitionLabel(at.In(loc)))
}

func TestParseDate(t *testing.T) {
	a, err := ParseDate("05.03.2024/14:30", time.UTC)
	require.NoError(t, err)
	b, err := ParseDate("04.03.2024/23:59", time.UTC)
	require.NoError(t, err)
	assert.True(t, a.After(b))
	assert.Equal(t, "05.03.2024/14:30", FormatDate(a))

	_, err = ParseDate("2024-03-05", time.UTC)
	assert.Error(t, err)
}

func TestStyleOfFirstPrefixWins(t *testing.T) {
	r, err := NewRegistry([]Rule{
		{Name: "food", Color: "#111111"},
		{Name: "foo", Color: "#222222"},
		{Name: "pay", Color: "#333333", Income: true},
	})
	require.NoError(t, err)

	assert.Equal(t, sheets.MustColor("#111111"), r.StyleOf("Food delivery").Color)
	assert.Equal(t, sheets.MustColor("#222222"), r.StyleOf("FOOBAR").Color)
	assert.True(t, r.StyleOf("paycheck").Income)
	assert.Equal(t, r.DefaultStyle(), r.StyleOf("misc"))
	assert.False(t, r.DefaultStyle().Income)
}

func TestCategoryOfReversesColors(t *testing.T) {
	r := Default()
	for _, rule := range DefaultRules {
		name, ok := r.CategoryOf(sheets.MustColor(rule.Color))
		require.True(t, ok, rule.Name)
		assert.Equal(t, rule.Name, name)
	}
	_, ok := r.CategoryOf(sheets.White)
	assert.False(t, ok)
}

func TestDefaultRegistryColorsAreUnique(t *testing.T) {
	seen := map[string]string{}
	for _, rule := range DefaultRules {
		c := sheets.MustColor(rule.Color).Hex()
		if prev, ok := seen[c]; ok {
			t.Fatalf("%s and %s share %s", prev, rule.Name, c)
		}
		seen[c] = rule.Name
	}
	r := Default()
	assert.Len(t, r.Spend(), 9)
	assert.Len(t, r.Income(), 5)
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry([]Rule{{Name: "a", Color: "#010101"}, {Name: "b", Color: "#010101"}})
	assert.ErrorIs(t, err, ErrDuplicateColor)

	_, err = NewRegistry([]Rule{{Name: "a", Color: "#ffffff"}})
	assert.ErrorIs(t, err, ErrReservedColor)

	_, err = NewRegistry([]Rule{{Name: " ", Color: "#010101"}})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewRegistry([]Rule{{Name: "a", Color: "blue"}})
	assert.Error(t, err)

	var many []Rule
	for i := 0; i < CategorySlots+1; i++ {
		many = append(many, Rule{Name: string(rune('a' + i)), Color: sheets.Color{R: uint8(i + 1)}.Hex()})
	}
	_, err = NewRegistry(many)
	assert.ErrorIs(t, err, ErrTooManyCategories)
}

func TestIsExplicit(t *testing.T) {
	r := Default()
	red := sheets.MustColor("#ff0000")
	white := sheets.White
	assert.False(t, r.IsExplicit(nil))
	assert.False(t, r.IsExplicit(&white))
	assert.True(t, r.IsExplicit(&red))
}

func TestLoadFile(t *testing.T) {
	r, err := LoadFile(filepath.Join("testdata", "categories.yaml"))
	require.NoError(t, err)
	assert.Len(t, r.Spend(), 2)
	assert.Len(t, r.Income(), 1)
	assert.True(t, r.StyleOf("Salary March").Income)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "dup.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("categories:\n  - {name: a, color: '#010101'}\n  - {name: b, color: '#010101'}\n"), 0o600))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrDuplicateColor)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("categories: []\n"), 0o600))
	_, err = LoadFile(empty)
	assert.Error(t, err)
}
