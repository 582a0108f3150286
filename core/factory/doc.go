// Package factory is a generic registry that builds components from a type
// name and a map of raw settings. Solver backends register themselves here
// and are created from the solver section of the configuration.
//
//	reg := factory.NewRegistry[Backend]()
//	_ = reg.Register("glpk", func(conf map[string]any) (Backend, error) {
//	    var c struct{ Binary string `json:"binary"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return &glpk{binary: c.Binary}, nil
//	})
//	b, err := reg.Create(factory.ModuleConfig{Type: "glpk"})
package factory
