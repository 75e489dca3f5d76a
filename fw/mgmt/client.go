/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package mgmt

import (
	"fmt"
	"net"

	"github.com/icn-team/augustus/fw/defn"
)

// EncodeCommand builds the control datagram for a FIB update: an ICN
// packet of type Control whose name is "<VERB>:<prefix>:<face>".
func EncodeCommand(verb string, prefix string, faceID defn.FaceID) []byte {
	name := fmt.Sprintf("%s%c%s%c%d", verb, defn.CommandSep, prefix, defn.CommandSep, faceID)
	return defn.EncodePacket(defn.TypeControl, 0, []byte(name), nil)
}

// SendCommand delivers one FIB update command to a router's control
// socket. Used by the fib-update subcommand and by tests.
func SendCommand(ctrlAddr string, verb string, prefix string, faceID defn.FaceID) error {
	conn, err := net.Dial("udp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("unable to reach control socket %q: %w", ctrlAddr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(EncodeCommand(verb, prefix, faceID)); err != nil {
		return fmt.Errorf("unable to send command: %w", err)
	}
	return nil
}
