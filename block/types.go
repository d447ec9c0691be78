package block

// Type is the dispatch tag used for codec and capacity decisions
// (spec §3.1 BlockType).
type Type int

const (
	TypeUnknown Type = iota
	TypeRawData
	TypeRandom
	TypeOwnerFreeWhitenedBlock
	TypeEphemeralOwnedDataBlock
	TypeConstituentBlockList
	TypeExtendedConstituentBlockListBlock
	TypeEncryptedOwnedData
	TypeEncryptedCBL
	TypeEncryptedExtendedCBL
	TypeMultiEncryptedBlock
	TypeFECData
	TypeHandle
)

func (t Type) String() string {
	switch t {
	case TypeRawData:
		return "RawData"
	case TypeRandom:
		return "Random"
	case TypeOwnerFreeWhitenedBlock:
		return "OwnerFreeWhitenedBlock"
	case TypeEphemeralOwnedDataBlock:
		return "EphemeralOwnedDataBlock"
	case TypeConstituentBlockList:
		return "ConstituentBlockList"
	case TypeExtendedConstituentBlockListBlock:
		return "ExtendedConstituentBlockListBlock"
	case TypeEncryptedOwnedData:
		return "EncryptedOwnedData"
	case TypeEncryptedCBL:
		return "EncryptedCBL"
	case TypeEncryptedExtendedCBL:
		return "EncryptedExtendedCBL"
	case TypeMultiEncryptedBlock:
		return "MultiEncryptedBlock"
	case TypeFECData:
		return "FECData"
	case TypeHandle:
		return "Handle"
	default:
		return "Unknown"
	}
}

// DataType describes how a block's payload is to be interpreted
// (spec §3.1 BlockDataType).
type DataType int

const (
	DataTypeRawData DataType = iota
	DataTypeEphemeralStructuredData
	DataTypePublicMemberData
	DataTypePrivateMemberData
	DataTypeEncrypted
)

func (d DataType) String() string {
	switch d {
	case DataTypeRawData:
		return "RawData"
	case DataTypeEphemeralStructuredData:
		return "EphemeralStructuredData"
	case DataTypePublicMemberData:
		return "PublicMemberData"
	case DataTypePrivateMemberData:
		return "PrivateMemberData"
	case DataTypeEncrypted:
		return "Encrypted"
	default:
		return "Unknown"
	}
}
