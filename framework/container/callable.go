package container

import (
	"fmt"
	"reflect"
)

// Binder fills a passthrough parameter from request input. The routing layer
// supplies one backed by its native body/query binding; the container itself
// never parses request data.
type Binder func(t reflect.Type, res *Resolution) (any, error)

// CallablePlan is the compiled injection plan for a host callable (an
// endpoint handler, a controller method, a route-level dependency). All
// signature reflection happens once, when the route is registered; Call only
// walks the plan.
type CallablePlan struct {
	c      *Container
	fn     reflect.Value
	fnType reflect.Type
	params []*ResolutionNode
}

// PlanCallable inspects fn's parameters and classifies each one. The callable
// itself runs per request, so any managed lifetime is acceptable here; the
// lifetime rules only constrain bindings, not endpoints.
func (c *Container) PlanCallable(fn any) (*CallablePlan, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, fmt.Errorf("container: cannot plan %T: not a func", fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("container: cannot plan variadic func %s", t)
	}

	plan := &CallablePlan{c: c, fn: v, fnType: t}
	for i := 0; i < t.NumIn(); i++ {
		ann := annotation{
			name:       fmt.Sprintf("arg%d", i),
			typ:        t.In(i),
			source:     CallableParam,
			paramIndex: i,
		}
		node, err := c.buildChild(t, Transient, ann)
		if err != nil {
			return nil, err
		}
		plan.params = append(plan.params, node)
	}
	return plan, nil
}

// Params returns the classified parameter nodes, in declaration order.
func (p *CallablePlan) Params() []*ResolutionNode { return p.params }

// NumOut returns the number of values the callable returns.
func (p *CallablePlan) NumOut() int { return p.fnType.NumOut() }

// Call resolves every parameter and invokes the callable. Managed parameters
// come from the container (respecting any installed overrides), framework
// natives from res, and passthrough parameters from bind — or stay zero when
// bind is nil.
func (p *CallablePlan) Call(res *Resolution, bind Binder) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(p.params))
	for i, node := range p.params {
		if node.Classification == Passthrough && bind != nil {
			v, err := bind(node.ann.typ, res)
			if err != nil {
				return nil, err
			}
			bound, err := coerce(node.Key, v, node.ann.typ)
			if err != nil {
				return nil, err
			}
			args[i] = bound
			continue
		}
		arg, err := p.c.resolveNode(node, res)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return p.fn.Call(args), nil
}
