// Command siphon is a multi-connection HTTP(S) file downloader.
package main

import "github.com/siphon-dl/siphon/cmd"

func main() {
	cmd.Execute()
}
