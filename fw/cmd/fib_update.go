/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/fw/mgmt"
)

var flagCtrlAddr string

var CmdFibUpdate = &cobra.Command{
	Use:   "fib-update (ADD|DEL) PREFIX FACE",
	Short: "Send a FIB update command to a running router",
	Args:  cobra.ExactArgs(3),
	Run:   runFibUpdate,
}

func init() {
	CmdFibUpdate.Flags().StringVar(&flagCtrlAddr, "ctrl", "127.0.0.1:9000", "Control socket address")
}

func runFibUpdate(cmd *cobra.Command, args []string) {
	verb, prefix := args[0], args[1]
	if verb != "ADD" && verb != "DEL" {
		core.Log.Fatal(nil, "Unknown verb", "verb", verb)
	}
	faceID, err := strconv.ParseUint(args[2], 10, 8)
	if err != nil || faceID >= defn.MaxFaces {
		core.Log.Fatal(nil, "Invalid face id", "face", args[2])
	}
	if err := mgmt.SendCommand(flagCtrlAddr, verb, prefix, defn.FaceID(faceID)); err != nil {
		core.Log.Fatal(nil, "Unable to send FIB update", "err", err)
	}
}
