/*
Package msggroup assembles RTPS submessages into wire messages.

A MessageGroup is created for one send operation of one endpoint. Every
Add* call appends a submessage to the message being built, preceded by the
INFO_DST and INFO_TS submessages it needs. When a submessage does not fit,
the message built so far is flushed to the Sender first, so a submessage is
never split across messages.

	+--------------+---------+--------+---------------+---------+-----+
	| RTPS header  | INFO_DST| INFO_TS| DATA header   | payload | ... |
	| (20 bytes)   |         |        | + inline QoS  | (ref)   |     |
	+--------------+---------+--------+---------------+---------+-----+
	 control buffer ----------------------------------^ gather list entries

Payloads are not copied: the message is handed to the Sender as a list of
buffers.

A MessageGroup is not safe for concurrent use.
*/
package msggroup
