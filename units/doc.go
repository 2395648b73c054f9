// Package units contains small ready-made units: a string producer that
// forwards messages to a target unit and a string consumer that counts what it
// receives. They are used by the command line runner and as examples of the
// unit contract.
package units
