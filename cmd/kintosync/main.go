// Command kintosync is a thin CLI wiring the collection package together
// for manual exercising: local CRUD and sync() against a real Kinto-style
// server, driven by a TOML config file.
package main

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}
