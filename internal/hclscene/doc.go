// Package hclscene loads scenes written in HCL into the format-agnostic
// config.Scene model.
//
// A scene file declares elements, the operations they own and the relations
// between operations:
//
//	element "OB" "Cube" {
//	  name = "Cube"
//
//	  operation "geometry" "eval" {
//	    kind = "print"
//
//	    arguments {
//	      message = "evaluating cube"
//	    }
//
//	    relation "Empty/transform/local" {
//	      triggers = [reason.transform, reason.geometry]
//	    }
//	  }
//	}
//
// The `reason` variable exposes every recalc reason as a number. A relation
// without triggers is unconditional.
package hclscene
