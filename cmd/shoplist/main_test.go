package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pancakesID = "6f1c1c8e-2a4b-4f51-9d3e-0c7a5b8e9a01"
	cookiesID  = "6f1c1c8e-2a4b-4f51-9d3e-0c7a5b8e9a02"
	entryA     = "0b7d3c52-8f7e-4c11-a1f0-5e2d9c6b4a01"
	entryB     = "0b7d3c52-8f7e-4c11-a1f0-5e2d9c6b4a02"
)

const testPlan = `
user: 3d2b4c6a-1e5f-4a7b-8c9d-0e1f2a3b4c5d
recipes:
  - id: ` + pancakesID + `
    title: Pancakes
    servings: 4
    ingredients:
      - {name: Flour, amount: 2, unit: cup}
      - {name: Butter, amount: 2, unit: tbsp}
      - {name: Garlic, amount: 2, unit: clove}
      - {name: Blueberries, amount: 1, unit: cup, optional: true}
  - id: ` + cookiesID + `
    title: Cookies
    servings: 12
    ingredients:
      - {name: flour, amount: 1, unit: cups}
      - {name: butter, amount: 1, unit: Tbsp.}
      - {name: garlic, amount: 1, unit: head}
entries:
  - id: ` + entryA + `
    recipe: ` + pancakesID + `
  - id: ` + entryB + `
    recipe: ` + cookiesID + `
items:
  - {name: Paper towels, quantity: 1}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func findItem(t *testing.T, list *inbound.ShoppingListDTO, name, unit string) inbound.ShoppingItemDTO {
	t.Helper()
	for _, item := range list.Items {
		if item.Name == name && (unit == "" || item.Unit == unit) {
			return item
		}
	}
	require.Failf(t, "item not found", "%s %s", name, unit)
	return inbound.ShoppingItemDTO{}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"1", "lb"}, []string{"dimension: mass", "base:      453.592 g", "display:   1 lbs"}},
		{[]string{"16", "oz"}, []string{"display:   1 lbs"}},
		{[]string{"3", "tbsp"}, []string{"dimension: volume", "display:   3 tbsp"}},
		{[]string{"2", "Cloves"}, []string{"dimension: count", "base:      2 cloves", "display:   2 cloves"}},
		{[]string{"3"}, []string{"dimension: count", "base:      3", "display:   3"}},
		{[]string{"1", "pinch"}, []string{"dimension: unknown", "display:   1 pinch"}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, append([]string{"convert"}, tt.args...)...)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestConvert_RejectsBadQuantity(t *testing.T) {
	_, err := execute(t, "convert", "lots", "cup")
	assert.Error(t, err)

	_, err = execute(t, "convert", "-1", "cup")
	assert.Error(t, err)
}

func TestAggregate_JSON(t *testing.T) {
	path := writePlan(t, testPlan)

	out, err := execute(t, "aggregate", path, "-o", "json", "--breakdown")
	require.NoError(t, err)

	var result aggregateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)

	flour := findItem(t, result.List, "flour", "")
	assert.InDelta(t, 709.764, flour.TotalBaseQuantity, 1e-6)
	assert.Equal(t, 3.0, flour.Quantity)
	assert.Equal(t, "cups", flour.Unit)

	butter := findItem(t, result.List, "butter", "")
	assert.InDelta(t, 44.3604, butter.TotalBaseQuantity, 1e-6)
	assert.Equal(t, "tbsp", butter.Unit)

	// clove and head stay separate lines
	assert.Equal(t, 2.0, findItem(t, result.List, "garlic", "clove").Quantity)
	assert.Equal(t, 1.0, findItem(t, result.List, "garlic", "head").Quantity)

	towels := findItem(t, result.List, "paper towels", "")
	assert.True(t, towels.Manual)

	for _, item := range result.List.Items {
		assert.NotEqual(t, "blueberries", item.Name, "optional ingredients are skipped")
	}

	require.NotEmpty(t, result.Breakdown)
	for _, b := range result.Breakdown {
		var sum float64
		for _, r := range b.Recipes {
			sum += r.BaseQuantity
		}
		assert.InDelta(t, b.TotalBaseQuantity, sum, 1e-6, b.Name)
	}
}

func TestAggregate_RemoveEntry(t *testing.T) {
	path := writePlan(t, testPlan)

	out, err := execute(t, "aggregate", path, "-o", "json", "--remove-entry", entryB)
	require.NoError(t, err)

	var result aggregateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)

	flour := findItem(t, result.List, "flour", "")
	assert.InDelta(t, 473.176, flour.TotalBaseQuantity, 1e-6)
	assert.Equal(t, 2.0, flour.Quantity)
	for _, item := range result.List.Items {
		assert.NotEqual(t, "head", item.Unit, "the head of garlic came only from the removed entry")
	}
}

func TestAggregate_Table(t *testing.T) {
	path := writePlan(t, testPlan)

	out, err := execute(t, "aggregate", path, "--breakdown")
	require.NoError(t, err)

	assert.Contains(t, out, "ITEM")
	assert.Contains(t, out, "flour")
	assert.Contains(t, out, "manual")
	assert.Contains(t, out, "\nflour (")
	assert.Contains(t, out, " ml)")
	assert.Contains(t, out, "  Pancakes: ")
	assert.Contains(t, out, "  Cookies: ")
}

func TestAggregate_InvalidPlans(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "recipes: []\ncolour: red\n"},
		{"no recipes", "entries: []\n"},
		{"bad recipe id", "recipes:\n  - {id: nope, title: Toast, servings: 1}\n"},
		{"zero servings", "recipes:\n  - {id: " + pancakesID + ", title: Toast, servings: 0}\n"},
		{"unknown recipe", "recipes:\n  - {id: " + pancakesID + ", title: Toast, servings: 1}\nentries:\n  - {recipe: " + cookiesID + "}\n"},
		{"duplicate entry", "recipes:\n  - {id: " + pancakesID + ", title: Toast, servings: 1}\nentries:\n  - {id: " + entryA + ", recipe: " + pancakesID + "}\n  - {id: " + entryA + ", recipe: " + pancakesID + "}\n"},
		{"negative amount", "recipes:\n  - id: " + pancakesID + "\n    title: Toast\n    servings: 1\n    ingredients:\n      - {name: bread, amount: -1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "aggregate", writePlan(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestAggregate_UnknownEntryToRemove(t *testing.T) {
	path := writePlan(t, testPlan)

	out, err := execute(t, "aggregate", path, "-o", "json", "--remove-entry", "0b7d3c52-8f7e-4c11-a1f0-5e2d9c6b4aff")
	require.NoError(t, err, "removing an unknown entry is a no-op")

	var result aggregateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.InDelta(t, 709.764, findItem(t, result.List, "flour", "").TotalBaseQuantity, 1e-6)
}

func TestMigrate_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "mealplan.db")

	out, err := execute(t, "migrate", "version", "--dsn", dsn)
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	out, err = execute(t, "migrate", "up", "--dsn", dsn)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = execute(t, "migrate", "down", "--dsn", dsn)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = execute(t, "migrate", "status", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "applied  1 create_recipes")
	assert.Contains(t, out, "pending  3 create_shopping_item_contributions")
}

func TestMigrate_UnsupportedDriver(t *testing.T) {
	_, err := execute(t, "migrate", "version", "--driver", "mysql")
	assert.Error(t, err)
}

func TestMigrate_Create(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "migrate", "create", "add_aisles", "--dir", dir)
	require.NoError(t, err)

	files := strings.Fields(out)
	require.Len(t, files, 2)
	assert.True(t, strings.HasSuffix(files[0], "_add_aisles.up.sql"))
	assert.True(t, strings.HasSuffix(files[1], "_add_aisles.down.sql"))
	for _, f := range files {
		assert.FileExists(t, f)
	}
}
