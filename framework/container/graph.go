package container

import (
	"reflect"

	"go.uber.org/zap"
)

// ResolutionNode is one position in a binding's dependency graph. Trees are
// built once per registration, validated, then never mutated again; the
// per-request execution path only reads them.
type ResolutionNode struct {
	Key            reflect.Type
	Classification Classification
	Lifetime       Lifetime // meaningful only for managed nodes
	Source         SourceKind
	Children       []*ResolutionNode

	ann   annotation
	child *registration // managed children: the binding baked into this plan
}

// buildGraph resolves every declared dependency of reg's implementation into
// a child node and enforces lifetime compatibility. A child protocol that is
// not registered yet stays passthrough — registration order decides
// resolvability, so the recursion is naturally cycle-free: managed children
// always point at plans that were completed earlier.
func (c *Container) buildGraph(reg *registration) (*ResolutionNode, error) {
	root := &ResolutionNode{
		Key:            reg.binding.Protocol,
		Classification: Managed,
		Lifetime:       reg.binding.Lifetime,
		Source:         CallableParam,
	}

	for _, ann := range annotationsOf(reg.impl) {
		node, err := c.buildChild(reg.binding.Protocol, reg.binding.Lifetime, ann)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, node)
	}
	return root, nil
}

// buildChild classifies a single annotation and validates it against the
// parent's lifetime.
func (c *Container) buildChild(parent reflect.Type, parentLifetime Lifetime, ann annotation) (*ResolutionNode, error) {
	key := ann.typ
	var (
		class    Classification
		childReg *registration
	)

	if ann.aliasRef != "" {
		// `inject:"name"` reference: the name must resolve against the alias
		// namespace now — a dangling reference is a registration-time error,
		// never a request-time one.
		target, ok := c.aliases[ann.aliasRef]
		if !ok {
			return nil, &ForwardRefResolutionError{Name: ann.aliasRef, Field: ann.name, On: parent}
		}
		key = target
		if reg, ok := c.regs[target]; ok {
			class, childReg = Managed, reg
		} else {
			class = Passthrough
		}
	} else {
		class, childReg = c.classify(ann.typ)
		if childReg != nil {
			key = childReg.binding.Protocol
		}
	}

	node := &ResolutionNode{
		Key:            key,
		Classification: class,
		Source:         ann.source,
		ann:            ann,
		child:          childReg,
	}

	switch class {
	case Managed:
		node.Lifetime = childReg.binding.Lifetime
		node.Children = childReg.node.Children

		// Lifetime compatibility. A singleton child was fully validated at
		// its own registration, so checking direct children covers the
		// transitive rule.
		if parentLifetime == Singleton && node.Lifetime.narrowerThan(Singleton) {
			return nil, &SingletonLifetimeViolationError{
				Singleton:          parent,
				Dependency:         key,
				DependencyLifetime: node.Lifetime,
			}
		}
		if parentLifetime == Scoped && node.Lifetime == Transient {
			c.log.Warn("container: transient dependency of a scoped binding is built once per request",
				zap.Stringer("scoped", parent),
				zap.Stringer("transient", key))
		}

	case FrameworkNative:
		if parentLifetime == Singleton {
			c.log.Warn("container: singleton binding declares a request-bound framework value; it will be zero at build time",
				zap.Stringer("singleton", parent),
				zap.Stringer("dependency", ann.typ))
		}

	case Passthrough:
		if looksInjectable(ann.typ) {
			c.log.Info("container: dependency looks injectable but is not registered; leaving it to the host",
				zap.Stringer("on", parent),
				zap.String("name", ann.name),
				zap.Stringer("type", ann.typ))
		}
	}

	return node, nil
}

// splitNodes partitions a plan's children into constructor-parameter nodes
// (indexed by parameter position) and struct-field nodes.
func splitNodes(root *ResolutionNode) (params, fields []*ResolutionNode) {
	for _, n := range root.Children {
		if n.ann.source == CallableParam {
			params = append(params, n)
		} else {
			fields = append(fields, n)
		}
	}
	return params, fields
}
