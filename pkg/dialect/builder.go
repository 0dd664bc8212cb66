package dialect

import (
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect   *Dialect
	arrayText TypeInfo
}

// NewDialect creates a new dialect builder with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: core.NormLowercase,
			},
			types:         make(map[core.ColumnType]TypeInfo),
			typeNames:     make(map[string]core.SQLType),
			freeVariables: make(map[core.ColumnType]string),
			reservedWords: make(map[string]struct{}),
			castIDFormat:  "CAST(%s AS VARCHAR)",
		},
		arrayText: TypeInfo{Type: core.SQLClob, Name: "TEXT"},
	}
}

// New creates a dialect builder from a DialectConfig.
func New(cfg *core.DialectConfig) *Builder {
	b := NewDialect(cfg.Name)
	b.dialect.Identifiers = cfg.Identifiers
	b.dialect.DefaultSchema = cfg.DefaultSchema
	b.dialect.Placeholder = cfg.Placeholder
	b.dialect.Arrays = cfg.Arrays
	if cfg.UpdateFromRepeatSelf {
		b.dialect.UpdateFrom = UpdateFromRepeatSelf
	}
	return b
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm core.NormalizationStrategy) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// UpdateFromStyle sets how UPDATE statements list extra tables.
func (b *Builder) UpdateFromStyle(style UpdateFromStyle) *Builder {
	b.dialect.UpdateFrom = style
	return b
}

// JSONArrays stores array columns as JSON in the given text type.
func (b *Builder) JSONArrays(text TypeInfo) *Builder {
	b.dialect.Arrays = core.ArrayJSON
	b.arrayText = text
	return b
}

// NativeArrays stores array columns in the engine's array type, using bind
// and scan to adapt Go slices for the driver.
func (b *Builder) NativeArrays(bind func(value any) any, scan func(dest any) any) *Builder {
	b.dialect.Arrays = core.ArrayNative
	b.dialect.arrayBinder = bind
	b.dialect.arrayScanner = scan
	return b
}

// Type maps one abstract type to an engine type.
func (b *Builder) Type(t core.ColumnType, info TypeInfo) *Builder {
	b.dialect.types[t] = info
	return b
}

// Types maps several abstract types at once.
func (b *Builder) Types(types map[core.ColumnType]TypeInfo) *Builder {
	for t, info := range types {
		b.dialect.types[t] = info
	}
	return b
}

// TypeNames registers the type names the engine reports in its catalog.
func (b *Builder) TypeNames(names map[string]core.SQLType) *Builder {
	for name, t := range names {
		b.dialect.typeNames[strings.ToLower(name)] = t
	}
	return b
}

// FreeVariable overrides the "?" placeholder for values of type t.
func (b *Builder) FreeVariable(t core.ColumnType, fv string) *Builder {
	b.dialect.freeVariables[t] = fv
	return b
}

// AllowConversions registers acceptable physical type substitutions.
func (b *Builder) AllowConversions(conversions ...Conversion) *Builder {
	b.dialect.conversions = append(b.dialect.conversions, conversions...)
	return b
}

// CastIDFormat sets the fmt format used to cast an identifier to a string.
func (b *Builder) CastIDFormat(format string) *Builder {
	b.dialect.castIDFormat = format
	return b
}

// WithReservedWords registers words that need quoting when used as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[strings.ToLower(w)] = struct{}{}
	}
	return b
}

// Build returns the constructed dialect.
// Array types without an explicit mapping are derived from their scalar type.
func (b *Builder) Build() *Dialect {
	d := b.dialect
	for _, scalar := range core.ScalarTypes() {
		base, ok := d.types[scalar]
		if !ok {
			continue
		}
		array := scalar.ArrayOf()
		if _, ok := d.types[array]; ok {
			continue
		}
		switch d.Arrays {
		case core.ArrayNative:
			d.types[array] = TypeInfo{Type: core.SQLArray, Name: base.Name + "[]", ArrayBase: base.Type, ArrayBaseName: base.Name}
		default:
			d.types[array] = TypeInfo{Type: b.arrayText.Type, Name: b.arrayText.Name, ArrayBase: base.Type, ArrayBaseName: base.Name}
		}
	}
	return d
}
