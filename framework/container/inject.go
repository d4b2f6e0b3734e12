package container

import (
	"fmt"
	"reflect"
)

// InjectStruct fills the injectable fields of target, a *Struct that lives
// for the whole process (a controller, a long-lived worker). Because the
// target is built once, its managed fields are held to the singleton rule: a
// scoped or transient field fails with SingletonLifetimeViolationError
// rather than silently freezing a per-request value.
//
// Fields follow class-attribute semantics: exported, still zero, not tagged
// `inject:"-"`; an `inject:"name"` tag resolves through the alias namespace.
func (c *Container) InjectStruct(target any) error {
	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("container: InjectStruct needs a non-nil *Struct, got %T", target)
	}
	t := v.Type()

	elem := v.Elem()
	for _, ann := range fieldAnnotations(t.Elem()) {
		node, err := c.buildChild(t, Singleton, ann)
		if err != nil {
			return err
		}
		if node.Classification != Managed {
			continue
		}
		f := elem.FieldByIndex(ann.fieldIndex)
		if !f.IsZero() {
			continue
		}
		val, err := c.resolveNode(node, nil)
		if err != nil {
			return err
		}
		if val.IsValid() {
			f.Set(val)
		}
	}
	return nil
}
