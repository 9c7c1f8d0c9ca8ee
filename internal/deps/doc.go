// Package deps checks that the external programs a run needs can be found.
package deps
