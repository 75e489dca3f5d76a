/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package main

import (
	"github.com/icn-team/augustus/fw/cmd"
)

func main() {
	cmd.CmdAugustus.Execute()
}
