// Package scripts embeds the Risor feature scripts shipped with treebank.
package scripts

import "embed"

// FS holds features/*.risor. Pass it to the engine with WithScriptsFS and
// address scripts as "features/<name>.risor".
//
//go:embed features/*.risor
var FS embed.FS
