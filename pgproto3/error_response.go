package pgproto3

import (
	"bytes"
	"strconv"
)

// ErrorResponse is a server ErrorResponse. Field tags follow
// https://www.postgresql.org/docs/current/protocol-error-fields.html; only
// the fields pgerr actually classifies on (SQLState via Code, Message,
// Detail, Hint) are named, the rest round-trip through UnknownFields.
type ErrorResponse struct {
	Severity            string
	SeverityUnlocalized string
	Code                string
	Message             string
	Detail              string
	Hint                string
	Position            int32
	InternalPosition    int32
	InternalQuery       string
	Where               string
	SchemaName          string
	TableName           string
	ColumnName          string
	DataTypeName        string
	ConstraintName      string
	File                string
	Line                int32
	Routine             string

	UnknownFields map[byte]string
}

func (*ErrorResponse) Backend() {}

func (dst *ErrorResponse) Decode(src []byte) error {
	*dst = ErrorResponse{}

	buf := bytes.NewBuffer(src)
	for {
		fieldType, err := buf.ReadByte()
		if err != nil {
			return err
		}
		if fieldType == 0 {
			return nil
		}

		str, err := buf.ReadString(0)
		if err != nil {
			return &invalidMessageFormatErr{messageType: "ErrorResponse", details: "bad field string"}
		}
		str = str[:len(str)-1]

		switch fieldType {
		case 'S':
			dst.Severity = str
		case 'V':
			dst.SeverityUnlocalized = str
		case 'C':
			dst.Code = str
		case 'M':
			dst.Message = str
		case 'D':
			dst.Detail = str
		case 'H':
			dst.Hint = str
		case 'P':
			n, err := strconv.ParseInt(str, 10, 32)
			if err != nil {
				return &invalidMessageFormatErr{messageType: "ErrorResponse", details: "bad position"}
			}
			dst.Position = int32(n)
		case 'p':
			n, err := strconv.ParseInt(str, 10, 32)
			if err != nil {
				return &invalidMessageFormatErr{messageType: "ErrorResponse", details: "bad internal position"}
			}
			dst.InternalPosition = int32(n)
		case 'q':
			dst.InternalQuery = str
		case 'W':
			dst.Where = str
		case 's':
			dst.SchemaName = str
		case 't':
			dst.TableName = str
		case 'c':
			dst.ColumnName = str
		case 'd':
			dst.DataTypeName = str
		case 'n':
			dst.ConstraintName = str
		case 'F':
			dst.File = str
		case 'L':
			n, err := strconv.ParseInt(str, 10, 32)
			if err != nil {
				return &invalidMessageFormatErr{messageType: "ErrorResponse", details: "bad line"}
			}
			dst.Line = int32(n)
		case 'R':
			dst.Routine = str
		default:
			if dst.UnknownFields == nil {
				dst.UnknownFields = make(map[byte]string)
			}
			dst.UnknownFields[fieldType] = str
		}
	}
}

func (src *ErrorResponse) Encode(dst []byte) []byte {
	return src.encode(dst, 'E')
}

func (src *ErrorResponse) encode(dst []byte, typeByte byte) []byte {
	dst, sp := beginMessage(dst, typeByte)

	dst = appendErrorField(dst, 'S', src.Severity)
	dst = appendErrorField(dst, 'V', src.SeverityUnlocalized)
	dst = appendErrorField(dst, 'C', src.Code)
	dst = appendErrorField(dst, 'M', src.Message)
	dst = appendErrorField(dst, 'D', src.Detail)
	dst = appendErrorField(dst, 'H', src.Hint)
	if src.Position != 0 {
		dst = appendErrorField(dst, 'P', strconv.FormatInt(int64(src.Position), 10))
	}
	if src.InternalPosition != 0 {
		dst = appendErrorField(dst, 'p', strconv.FormatInt(int64(src.InternalPosition), 10))
	}
	dst = appendErrorField(dst, 'q', src.InternalQuery)
	dst = appendErrorField(dst, 'W', src.Where)
	dst = appendErrorField(dst, 's', src.SchemaName)
	dst = appendErrorField(dst, 't', src.TableName)
	dst = appendErrorField(dst, 'c', src.ColumnName)
	dst = appendErrorField(dst, 'd', src.DataTypeName)
	dst = appendErrorField(dst, 'n', src.ConstraintName)
	dst = appendErrorField(dst, 'F', src.File)
	if src.Line != 0 {
		dst = appendErrorField(dst, 'L', strconv.FormatInt(int64(src.Line), 10))
	}
	dst = appendErrorField(dst, 'R', src.Routine)

	for k, v := range src.UnknownFields {
		dst = appendErrorField(dst, k, v)
	}

	dst = append(dst, 0)
	return finishMessage(dst, sp)
}

func appendErrorField(dst []byte, fieldType byte, value string) []byte {
	if value == "" {
		return dst
	}
	dst = append(dst, fieldType)
	dst = append(dst, value...)
	dst = append(dst, 0)
	return dst
}

// NoticeResponse has the same wire shape as ErrorResponse but is sent for
// informational notices (e.g. NOTICE-level RAISE, commit confirmation)
// rather than request failures.
type NoticeResponse ErrorResponse

func (*NoticeResponse) Backend() {}

func (dst *NoticeResponse) Decode(src []byte) error {
	return (*ErrorResponse)(dst).Decode(src)
}

func (src *NoticeResponse) Encode(dst []byte) []byte {
	return (*ErrorResponse)(src).encode(dst, 'N')
}
