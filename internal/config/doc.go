// Package config loads the per-run report configuration from HCL files.
//
// A run file holds at most one `run` block:
//
//	run {
//	  locale                 = "de-DE"
//	  timezone               = "Europe/Berlin"
//	  repeat_header_interval = 25
//	  properties = {
//	    title = "Quarterly"
//	  }
//	}
//
// A directory is loaded by merging every .hcl file below it; the `run` block
// may appear in only one of them. The decoded Run is the Configuration handed
// to formula evaluation for the run.
package config
