// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import "github.com/runq-org/runq/cmd"

func main() {
	cmd.Execute()
}
