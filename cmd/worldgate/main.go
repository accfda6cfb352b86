// Package main is the entry point for worldgate.
package main

func main() {
	Execute()
}
