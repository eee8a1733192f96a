package main

import (
	"encoding/json"
	"fmt"
)

// printJSON writes v to stdout as indented JSON, the CLI's single output
// format.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	fmt.Println(string(out))

	return nil
}
