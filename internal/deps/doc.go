// Package deps locates the external tools subgen shells out to and reports
// whether they are available.
package deps
