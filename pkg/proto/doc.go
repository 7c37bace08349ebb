/*
Package proto implements the RTPS wire format used by the reliable delivery core.

RTPS Message

An RTPS message looks like
  +------------------------+---------------+---------------+-----+
  | 20-byte message header | submessage #1 | submessage #2 | ... |
  +------------------------+---------------+---------------+-----+

Message header
        | 0| 1| 2| 3| 4| 5| 6| 7| 0| 1| 2| 3| 4| 5| 6| 7| 0| 1| 2| 3| 4| 5| 6| 7| 0| 1| 2| 3| 4| 5| 6| 7|
   byte |                      0|                      1|                      2|                      3|
  ------+-----------------------+-----------------------+-----------------------+-----------------------+
      0 | 'R'                   | 'T'                   | 'P'                   | 'S'                   |
  ------+-----------------------+-----------------------+-----------------------+-----------------------+
      4 | version major         | version minor         | vendor id                                     |
  ------+-----------------------+-----------------------+-----------------------------------------------+
      8 | guid prefix (12 bytes)                                                                        |
  ------+-----------------------------------------------------------------------------------------------+

  version:
    2.3
  vendor id:
    0x01 0x0f

Submessage header
        |0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|
   byte |              0|              1|              2|              3|
  ------+---------------+---------------+---------------+---------------+
      0 | submessage id | flags         | octetsToNextHeader            |
        |               +-------------+-+                               |
        |               |             |E|                               |
  ------+---------------+-------------+-+-------------------------------+

  E: endianness of the submessage, 1 for little endian. This side always
     writes with EncByteOrder.

  submessage id:
    0x01	PAD
    0x06	ACKNACK        flags: F(0x02)
    0x07	HEARTBEAT      flags: F(0x02) L(0x04)
    0x08	GAP
    0x09	INFO_TS        flags: I(0x02)
    0x0e	INFO_DST
    0x12	NACK_FRAG
    0x13	HEARTBEAT_FRAG
    0x15	DATA           flags: Q(0x02) D(0x04) K(0x08)
    0x16	DATA_FRAG      flags: Q(0x02) K(0x04)

DATA
        |0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|
  ------+-------------------------------+-------------------------------+
      0 | extra flags                   | octetsToInlineQos (16)        |
  ------+-------------------------------+-------------------------------+
      4 | reader entity id                                              |
  ------+---------------------------------------------------------------+
      8 | writer entity id                                              |
  ------+---------------------------------------------------------------+
     12 | writer sequence number: high int32, low uint32                |
  ------+---------------------------------------------------------------+
     20 | inline QoS parameter list (Q set)                             |
        +---------------------------------------------------------------+
        | serialized payload (D or K set), zero padded to 4 bytes       |
  ------+---------------------------------------------------------------+

DATA_FRAG adds fragment starting number (uint32), fragments in submessage
(uint16), fragment size (uint16) and sample size (uint32) before the inline
QoS; octetsToInlineQos is 28.

GAP
  reader id | writer id | gapStart SN | gapList SequenceNumberSet

SequenceNumberSet
  +-------------+----------+--------------------------------------+
  | base SN (8) | numBits  | ceil(numBits/32) 32-bit bitmap words |
  +-------------+----------+--------------------------------------+
  Bit i (0 <= i < numBits <= 256) stands for base+i and lives in word i/32
  at bit position 31-i%32.

Parameter List

The parameter list wire format is described in parameter.go. An encapsulated
list starts with
  +------+---------------------------+-------------+
  | 0x00 | 0x02 (PL_CDR_BE) or       | 2 reserved  |
  |      | 0x03 (PL_CDR_LE)          | bytes       |
  +------+---------------------------+-------------+
*/
package proto
