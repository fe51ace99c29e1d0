// Command vupscale - пакетное увеличение разрешения видео.
package main

import "github.com/artemshloyda/vupscale/internal/cli"

func main() {
	cli.Execute()
}
