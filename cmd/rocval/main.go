// Package main provides the rocval CLI for profile-driven RO-Crate validation.
package main

func main() {
	Execute()
}
