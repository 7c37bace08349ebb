/*
Package rtcp implements the control protocol run over stream transports
before any data flows: binding a connection, negotiating logical ports and
keeping the connection alive.

Every control message starts with a 14 byte header ("RTCP", total length,
additive checksum, logical port 0) followed by a control header holding the
message kind, flags, length and a 96-bit transaction id. Responses add a
32-bit code. Bodies are framed by an encapsulation id and a length.

	m := rtcp.NewManager(&rtcp.DefaultConfig, local, transport.IsInputPortOpen)
	ch := rtcp.NewChannel(conn, remote, false)
	m.SendConnectionRequest(ch)
	for {
		buf, err := rtcp.ReadMessage(conn)
		if err != nil {
			break
		}
		m.ProcessMessage(ch, buf)
	}
*/
package rtcp
