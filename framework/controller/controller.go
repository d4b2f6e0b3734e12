package controller

import (
	"fmt"
	"reflect"

	"github.com/km-arc/fastioc/framework/container"
	"github.com/km-arc/fastioc/framework/routing"
)

// Route declares one endpoint: a method, a chi pattern, a handler in any
// shape the router accepts, and optional route-level dependency protocols
// resolved before the handler runs.
type Route struct {
	Method   string
	Pattern  string
	Handler  any
	Requires []reflect.Type
}

// Controller is a struct that declares its own routes. Exported zero fields
// are filled from the container when the controller is mounted, so a
// controller lists its collaborators as fields instead of threading them
// through a constructor:
//
//	type UserController struct {
//	    Users IUserService
//	    Log   *zap.Logger `inject:"log"`
//	}
//
//	func (uc *UserController) Routes() []controller.Route {
//	    return []controller.Route{
//	        {Method: "GET", Pattern: "/users/{id}", Handler: uc.Show},
//	    }
//	}
type Controller interface {
	Routes() []Route
}

// Mount injects the controller's fields and registers its routes. The
// controller lives for the whole process, so its fields are held to the
// singleton rule; a scoped or transient field fails the mount.
func Mount(r *routing.Router, c *container.Container, ctrl Controller) error {
	v := reflect.ValueOf(ctrl)
	if v.Kind() == reflect.Ptr && v.Elem().Kind() == reflect.Struct {
		if err := c.InjectStruct(ctrl); err != nil {
			return fmt.Errorf("controller %T: %w", ctrl, err)
		}
	}

	for _, route := range ctrl.Routes() {
		switch route.Method {
		case "GET":
			r.Get(route.Pattern, route.Handler, route.Requires...)
		case "POST":
			r.Post(route.Pattern, route.Handler, route.Requires...)
		case "PUT":
			r.Put(route.Pattern, route.Handler, route.Requires...)
		case "PATCH":
			r.Patch(route.Pattern, route.Handler, route.Requires...)
		case "DELETE":
			r.Delete(route.Pattern, route.Handler, route.Requires...)
		default:
			return fmt.Errorf("controller %T: unsupported method %q on %s", ctrl, route.Method, route.Pattern)
		}
	}
	return nil
}

// MustMount is Mount with a panic on failure, for boot-time wiring.
func MustMount(r *routing.Router, c *container.Container, ctrl Controller) {
	if err := Mount(r, c, ctrl); err != nil {
		panic(err)
	}
}
