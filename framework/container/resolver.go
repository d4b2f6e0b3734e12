package container

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	gohttp "github.com/km-arc/fastioc/framework/http"
)

// ── Classification ───────────────────────────────────────────────────────────

// Classification says who is responsible for producing a declared dependency.
type Classification int

const (
	// Managed dependencies are satisfied by the container.
	Managed Classification = iota
	// FrameworkNative dependencies are request primitives the routing layer
	// supplies (request, response writer, context, parameter carriers).
	FrameworkNative
	// Passthrough dependencies are unknown to the container and left for the
	// host to bind from request input. Never an error here; if binding fails
	// it fails as an ordinary request error on the host side.
	Passthrough
)

func (c Classification) String() string {
	switch c {
	case Managed:
		return "managed"
	case FrameworkNative:
		return "framework-native"
	case Passthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// SourceKind records where a declared dependency was found.
type SourceKind int

const (
	// CallableParam is a constructor or handler parameter.
	CallableParam SourceKind = iota
	// ClassAttribute is an exported struct field.
	ClassAttribute
)

func (s SourceKind) String() string {
	if s == ClassAttribute {
		return "attribute"
	}
	return "param"
}

// annotation is one (name, declared type) pair pulled from an implementation.
type annotation struct {
	name       string
	typ        reflect.Type
	source     SourceKind
	aliasRef   string // `inject:"name"` tag value, "" when absent
	fieldIndex []int  // ClassAttribute only
	paramIndex int    // CallableParam only
}

// annotationsOf lists the injectable declarations of an implementation, in
// declaration order: constructor parameters first, then the exported fields
// of the produced struct (for prototypes and struct-returning constructors).
//
// Reflection exposes no parameter names, so constructor parameters get
// synthesized arg0..argN names. A field tagged `inject:"-"` is opted out; a
// field left non-zero by the constructor is skipped at fill time, which is
// how an assigned default wins over injection.
func annotationsOf(impl *implementation) []annotation {
	var anns []annotation
	switch impl.kind {
	case implCtor:
		for i := 0; i < impl.ctorType.NumIn(); i++ {
			anns = append(anns, annotation{
				name:       fmt.Sprintf("arg%d", i),
				typ:        impl.ctorType.In(i),
				source:     CallableParam,
				paramIndex: i,
			})
		}
		if impl.produces.Kind() == reflect.Ptr && impl.produces.Elem().Kind() == reflect.Struct {
			anns = append(anns, fieldAnnotations(impl.produces.Elem())...)
		}
	case implPrototype:
		anns = append(anns, fieldAnnotations(impl.proto)...)
	case implInstance:
		// pre-built values are taken as-is
	}
	return anns
}

func fieldAnnotations(structType reflect.Type) []annotation {
	var anns []annotation
	for i := 0; i < structType.NumField(); i++ {
		f := structType.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		tag := f.Tag.Get("inject")
		if tag == "-" {
			continue
		}
		anns = append(anns, annotation{
			name:       f.Name,
			typ:        f.Type,
			source:     ClassAttribute,
			aliasRef:   tag,
			fieldIndex: f.Index,
		})
	}
	return anns
}

// ── Framework-native set ─────────────────────────────────────────────────────

var nativeTypes = map[reflect.Type]struct{}{
	reflect.TypeFor[context.Context]():         {},
	reflect.TypeFor[*http.Request]():           {},
	reflect.TypeFor[http.ResponseWriter]():     {},
	reflect.TypeFor[*gohttp.Request]():         {},
	reflect.TypeFor[*gohttp.Response]():        {},
	reflect.TypeFor[gohttp.PathParams]():       {},
	reflect.TypeFor[gohttp.Query]():            {},
	reflect.TypeFor[gohttp.Headers]():          {},
	reflect.TypeFor[gohttp.Form]():             {},
	reflect.TypeFor[*multipart.FileHeader]():   {},
	reflect.TypeFor[[]*multipart.FileHeader](): {},
}

// classify applies the priority rules to a declared type:
// registered → Managed, framework-native → FrameworkNative, else Passthrough.
// Pointer indirection is stripped before the registry lookup so *Impl and
// Impl annotations hit the same binding.
func (c *Container) classify(t reflect.Type) (Classification, *registration) {
	if reg, ok := c.regs[t]; ok {
		return Managed, reg
	}
	if t.Kind() == reflect.Ptr {
		if reg, ok := c.regs[t.Elem()]; ok {
			return Managed, reg
		}
	}
	if _, ok := nativeTypes[t]; ok {
		return FrameworkNative, nil
	}
	return Passthrough, nil
}

// looksInjectable reports whether a passthrough type was plausibly meant to
// be container-managed: a named interface or struct declared in a non-stdlib
// package. Used only to emit a debugging signal, never to fail.
func looksInjectable(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return false
	}
	if t.Kind() != reflect.Interface && t.Kind() != reflect.Struct {
		return false
	}
	root, _, _ := strings.Cut(t.PkgPath(), "/")
	return strings.Contains(root, ".") // module paths start with a domain
}

// protocolShadowsHost reports whether registering t as a protocol risks
// shadowing something the host framework already has a native meaning for:
// builtin kinds and the framework-native set. Registration still succeeds;
// the container only emits a warning.
func protocolShadowsHost(t reflect.Type) bool {
	if _, ok := nativeTypes[t]; ok {
		return true
	}
	if t == errType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Map, reflect.Slice, reflect.Array:
		// named domain types (e.g. type UserID int) are legitimate keys;
		// only unnamed/builtin shapes shadow host parameter parsing.
		return t.PkgPath() == ""
	}
	return false
}
