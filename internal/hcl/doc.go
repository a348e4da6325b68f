// Package hcl provides the concrete HCL implementation of the configuration
// loading and graph interchange interfaces defined in the `config` package.
// It is responsible for file parsing, HCL-to-model translation and writing
// graphs and artifacts back out with hclwrite.
//
// A graph document looks like:
//
//	graph {
//	  attrs = { version = 3 }
//	}
//
//	node "Placeholder" "x" {
//	  outputs = ["float32"]
//	}
//
//	node "Relu" "a" {
//	  device  = "/device:CPU:0"
//	  inputs  = ["x", "^init"]
//	  outputs = ["float32"]
//	  attrs   = { alpha = 0.2 }
//	}
//
//	item {
//	  feed  = ["x"]
//	  fetch = ["a"]
//	}
package hcl
