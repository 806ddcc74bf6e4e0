package forms

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

func bookModel() *types.Model {
	return &types.Model{
		Name: "Book",
		Fields: []types.Field{
			{Name: "title", Type: types.FieldTypeText, Required: true},
			{Name: "pages", Type: types.FieldTypeInteger, Required: true},
			{Name: "price", Type: types.FieldTypeNumber},
			{Name: "in_print", Type: types.FieldTypeBoolean, Label: "Still in print"},
			{Name: "published", Type: types.FieldTypeTimestamp},
			{Name: "tags", Type: types.FieldTypeList, Default: []any{"new"}},
		},
	}
}

func TestBuildOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want []string
	}{
		{name: "all fields", want: []string{"title", "pages", "price", "in_print", "published", "tags"}},
		{name: "subset keeps declared order", opts: []Option{WithFields("tags", "title")}, want: []string{"title", "tags"}},
		{name: "exclude", opts: []Option{WithExclude("price", "tags")}, want: []string{"title", "pages", "in_print", "published"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Build(bookModel(), tt.opts...)
			var got []string
			for _, field := range f.Fields() {
				got = append(got, field.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	f := Build(bookModel())
	r, errs := f.Validate(url.Values{
		"title":     {"Dune"},
		"pages":     {"412"},
		"price":     {"9.5"},
		"in_print":  {"on"},
		"published": {"1965-08-01T00:00"},
		"tags":      {"sf, classic\nnovel"},
	})
	require.Nil(t, errs)
	assert.Equal(t, "Dune", r.Get("title"))
	assert.Equal(t, int64(412), r.Get("pages"))
	assert.Equal(t, 9.5, r.Get("price"))
	assert.Equal(t, true, r.Get("in_print"))
	assert.Equal(t, time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC), r.Get("published"))
	assert.Equal(t, []string{"sf", "classic", "novel"}, r.Get("tags"))
}

func TestValidateMissingRequired(t *testing.T) {
	_, errs := Build(bookModel()).Validate(url.Values{"title": {"  "}})
	assert.Equal(t, types.ValidationErrors{
		"title": types.MsgRequired,
		"pages": types.MsgRequired,
	}, errs)
}

func TestValidateTypedMessages(t *testing.T) {
	_, errs := Build(bookModel()).Validate(url.Values{
		"title":     {"x"},
		"pages":     {"many"},
		"price":     {"cheap"},
		"published": {"yesterday"},
	})
	assert.Equal(t, types.MsgInteger, errs["pages"])
	assert.Equal(t, types.MsgNumber, errs["price"])
	assert.Equal(t, types.MsgTimestamp, errs["published"])
	assert.NotContains(t, errs, "title")
}

func TestValidateOptionalBlank(t *testing.T) {
	r, errs := Build(bookModel()).Validate(url.Values{"title": {"x"}, "pages": {"1"}})
	require.Nil(t, errs)
	assert.Nil(t, r.Get("price"))
	assert.Nil(t, r.Get("published"))
	assert.Equal(t, false, r.Get("in_print"))
	assert.Equal(t, []string{}, r.Get("tags"))
}

func TestChecked(t *testing.T) {
	tests := []struct {
		raw  []string
		want bool
	}{
		{raw: nil, want: false},
		{raw: []string{"on"}, want: true},
		{raw: []string{"false"}, want: false},
		{raw: []string{"false", "on"}, want: true},
		{raw: []string{"0"}, want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, checked(tt.raw), "%q", tt.raw)
	}
}

func TestValidateDeclaredPrimaryKey(t *testing.T) {
	m := &types.Model{
		Name:       "Country",
		PrimaryKey: "code",
		Fields: []types.Field{
			{Name: "code", Type: types.FieldTypeText, Required: true},
			{Name: "name", Type: types.FieldTypeText},
		},
	}
	r, errs := Build(m).Validate(url.Values{"code": {"NZ"}, "name": {"New Zealand"}})
	require.Nil(t, errs)
	assert.Equal(t, "NZ", r.PK)
}

func TestBind(t *testing.T) {
	f := Build(bookModel(), WithLabels(map[string]string{"pages": "Page count"}))
	values := url.Values{"title": {"Dune"}, "pages": {"many"}, "in_print": {"on"}}
	_, errs := f.Validate(values)
	fields := f.Bind(values, errs)
	require.Len(t, fields, 6)

	assert.Equal(t, BoundField{Name: "title", Label: "Title", InputType: InputText, Value: "Dune", Required: true}, fields[0])
	assert.Equal(t, "Page count", fields[1].Label)
	assert.Equal(t, "many", fields[1].Value)
	assert.Equal(t, types.MsgInteger, fields[1].Error)
	assert.Equal(t, "Still in print", fields[3].Label)
	assert.True(t, fields[3].Checked)
	assert.Equal(t, InputCheckbox, fields[3].InputType)
}

func TestInitial(t *testing.T) {
	f := Build(bookModel())

	defaults := f.Initial(nil)
	assert.Equal(t, "new", defaults[5].Value)
	assert.Equal(t, InputTextarea, defaults[5].InputType)

	r := types.NewRecord("b1")
	r.Set("title", "Dune")
	r.Set("pages", int64(412))
	r.Set("in_print", true)
	r.Set("published", time.Date(1965, 8, 1, 10, 30, 0, 0, time.UTC))
	r.Set("tags", []string{"sf", "classic"})

	fields := f.Initial(r)
	assert.Equal(t, "412", fields[1].Value)
	assert.Equal(t, InputNumber, fields[1].InputType)
	assert.Equal(t, "1", fields[1].Step)
	assert.True(t, fields[3].Checked)
	assert.Equal(t, "1965-08-01T10:30:00", fields[4].Value)
	assert.Equal(t, "sf\nclassic", fields[5].Value)
}

func TestUnchanged(t *testing.T) {
	precise := time.Date(2024, 3, 1, 12, 30, 45, 123456789, time.UTC)
	tests := []struct {
		name      string
		stored    any
		submitted any
		want      bool
	}{
		{"timestamp shown without nanoseconds", precise, precise.Truncate(time.Second), true},
		{"timestamp edited", precise, precise.Add(time.Minute).Truncate(time.Second), false},
		{"same text", "a", "a", true},
		{"text edited", "a", "b", false},
		{"cleared", precise, nil, false},
		{"both empty", nil, nil, true},
		{"same list", []string{"x", "y"}, []string{"x", "y"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unchanged(tt.stored, tt.submitted))
		})
	}
}
