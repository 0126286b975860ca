package core

import "github.com/exicore/exicore/utils"

/*
	StringDecoder implementation
*/

// StringDecoder reads value strings through the shared string table. The
// first varint selects the branch: 0 local hit, 1 global hit, anything
// else a literal of that length minus two.
type StringDecoder struct {
	table *StringTable
}

func NewStringDecoder(table *StringTable) *StringDecoder {
	return &StringDecoder{table: table}
}

func (d *StringDecoder) ReadValue(uriID, localID int, channel DecoderChannel) (*StringValue, error) {
	i, err := channel.DecodeUnsignedInteger()
	if err != nil {
		return nil, err
	}

	switch i {
	case 0:
		return d.readLocalHit(uriID, localID, channel)
	case 1:
		return d.readGlobalHit(channel)
	default:
		length := i - 2
		if length == 0 {
			return EmptyStringValue, nil
		}
		runes, err := channel.DecodeStringOnly(length)
		if err != nil {
			return nil, err
		}
		value := string(runes)
		// a decoded literal joins both the local and the global partition
		d.table.AddValue(uriID, localID, value)
		return NewStringValue(value), nil
	}
}

func (d *StringDecoder) readLocalHit(uriID, localID int, channel DecoderChannel) (*StringValue, error) {
	n := d.table.LocalValueLog(uriID, localID)
	localValueID, err := channel.DecodeNBitUnsignedInteger(n)
	if err != nil {
		return nil, err
	}
	s, err := d.table.GetLocalValue(uriID, localID, localValueID)
	if err != nil {
		return nil, errAt(CodeInvalidExiInput, channel.BitPosition(),
			"local value hit outside the partition")
	}
	return NewStringValue(s), nil
}

func (d *StringDecoder) readGlobalHit(channel DecoderChannel) (*StringValue, error) {
	n := d.table.GlobalValueLog()
	globalID, err := channel.DecodeNBitUnsignedInteger(n)
	if err != nil {
		return nil, err
	}
	s, err := d.table.GetGlobalValue(globalID)
	if err != nil {
		return nil, errAt(CodeInvalidExiInput, channel.BitPosition(),
			"global value hit outside the partition")
	}
	return NewStringValue(s), nil
}

/*
	StringEncoder implementation
*/

// StringEncoder writes value strings through the shared string table,
// preferring local over global hits over literals.
type StringEncoder struct {
	table *StringTable
}

func NewStringEncoder(table *StringTable) *StringEncoder {
	return &StringEncoder{table: table}
}

func (e *StringEncoder) WriteValue(uriID, localID int, channel EncoderChannel, value string) error {
	hit, ok := e.table.FindValue(value)
	if ok {
		if hit.uriID == uriID && hit.localID == localID && hit.localValueID >= 0 {
			// local hit: branch 0 plus the compact local identifier
			if err := channel.EncodeUnsignedInteger(0); err != nil {
				return err
			}
			n := e.table.LocalValueLog(uriID, localID)
			return channel.EncodeNBitUnsignedInteger(hit.localValueID, n)
		}
		// global hit: branch 1 plus the compact global identifier
		if err := channel.EncodeUnsignedInteger(1); err != nil {
			return err
		}
		return channel.EncodeNBitUnsignedInteger(hit.globalID, e.table.GlobalValueLog())
	}

	// miss: literal, length incremented by two
	length := utils.CodePointCount(value)
	if err := channel.EncodeUnsignedInteger(length + 2); err != nil {
		return err
	}
	if length > 0 {
		if err := channel.EncodeStringOnly(value); err != nil {
			return err
		}
		e.table.AddValue(uriID, localID, value)
	}
	return nil
}

// IsStringHit reports whether value would take a hit branch.
func (e *StringEncoder) IsStringHit(value string) bool {
	_, ok := e.table.FindValue(value)
	return ok
}
