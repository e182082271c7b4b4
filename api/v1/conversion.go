// Package v1 holds the messages exchanged with the conversion pipeline,
// as described by conversion.proto.
//
// The messages are encoded with the gogo/protobuf table-driven codec:
// use proto.Marshal and proto.Unmarshal.
package v1

import (
	proto "github.com/gogo/protobuf/proto"
)

type Location_Kind int32

const (
	Location_UNKNOWN Location_Kind = 0
	Location_MINIO   Location_Kind = 1
	Location_LOCAL   Location_Kind = 2
)

var Location_Kind_name = map[int32]string{
	0: "UNKNOWN",
	1: "MINIO",
	2: "LOCAL",
}

var Location_Kind_value = map[string]int32{
	"UNKNOWN": 0,
	"MINIO":   1,
	"LOCAL":   2,
}

func (x Location_Kind) String() string {
	return proto.EnumName(Location_Kind_name, int32(x))
}

type ConversionResult_Status int32

const (
	ConversionResult_UNKNOWN   ConversionResult_Status = 0
	ConversionResult_SUCCEEDED ConversionResult_Status = 1
	ConversionResult_FAILED    ConversionResult_Status = 2
)

var ConversionResult_Status_name = map[int32]string{
	0: "UNKNOWN",
	1: "SUCCEEDED",
	2: "FAILED",
}

var ConversionResult_Status_value = map[string]int32{
	"UNKNOWN":   0,
	"SUCCEEDED": 1,
	"FAILED":    2,
}

func (x ConversionResult_Status) String() string {
	return proto.EnumName(ConversionResult_Status_name, int32(x))
}

// Location points to a stored object.
type Location struct {
	Kind       Location_Kind `protobuf:"varint,1,opt,name=kind,proto3,enum=api.v1.Location_Kind" json:"kind,omitempty"`
	Bucket     string        `protobuf:"bytes,2,opt,name=bucket,proto3" json:"bucket,omitempty"`
	ObjectName string        `protobuf:"bytes,3,opt,name=object_name,json=objectName,proto3" json:"object_name,omitempty"`
}

func (m *Location) Reset()         { *m = Location{} }
func (m *Location) String() string { return proto.CompactTextString(m) }
func (*Location) ProtoMessage()    {}
func (m *Location) XXX_Unmarshal(b []byte) error {
	return xxx_messageInfo_Location.Unmarshal(m, b)
}
func (m *Location) XXX_Marshal(b []byte, deterministic bool) ([]byte, error) {
	return xxx_messageInfo_Location.Marshal(b, m, deterministic)
}
func (m *Location) XXX_Merge(src proto.Message) {
	xxx_messageInfo_Location.Merge(m, src)
}
func (m *Location) XXX_Size() int {
	return xxx_messageInfo_Location.Size(m)
}
func (m *Location) XXX_DiscardUnknown() {
	xxx_messageInfo_Location.DiscardUnknown(m)
}

var xxx_messageInfo_Location proto.InternalMessageInfo

func (m *Location) GetKind() Location_Kind {
	if m != nil {
		return m.Kind
	}
	return Location_UNKNOWN
}

func (m *Location) GetBucket() string {
	if m != nil {
		return m.Bucket
	}
	return ""
}

func (m *Location) GetObjectName() string {
	if m != nil {
		return m.ObjectName
	}
	return ""
}

// ConversionJob requests the conversion of one DRM message.
type ConversionJob struct {
	JobId    string    `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
	Source   *Location `protobuf:"bytes,2,opt,name=source,proto3" json:"source,omitempty"`
	MimeType string    `protobuf:"bytes,3,opt,name=mime_type,json=mimeType,proto3" json:"mime_type,omitempty"`
}

func (m *ConversionJob) Reset()         { *m = ConversionJob{} }
func (m *ConversionJob) String() string { return proto.CompactTextString(m) }
func (*ConversionJob) ProtoMessage()    {}
func (m *ConversionJob) XXX_Unmarshal(b []byte) error {
	return xxx_messageInfo_ConversionJob.Unmarshal(m, b)
}
func (m *ConversionJob) XXX_Marshal(b []byte, deterministic bool) ([]byte, error) {
	return xxx_messageInfo_ConversionJob.Marshal(b, m, deterministic)
}
func (m *ConversionJob) XXX_Merge(src proto.Message) {
	xxx_messageInfo_ConversionJob.Merge(m, src)
}
func (m *ConversionJob) XXX_Size() int {
	return xxx_messageInfo_ConversionJob.Size(m)
}
func (m *ConversionJob) XXX_DiscardUnknown() {
	xxx_messageInfo_ConversionJob.DiscardUnknown(m)
}

var xxx_messageInfo_ConversionJob proto.InternalMessageInfo

func (m *ConversionJob) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

func (m *ConversionJob) GetSource() *Location {
	if m != nil {
		return m.Source
	}
	return nil
}

func (m *ConversionJob) GetMimeType() string {
	if m != nil {
		return m.MimeType
	}
	return ""
}

// ConversionResult reports the outcome of a ConversionJob.
type ConversionResult struct {
	JobId        string                  `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
	Source       *Location               `protobuf:"bytes,2,opt,name=source,proto3" json:"source,omitempty"`
	Converted    *Location               `protobuf:"bytes,3,opt,name=converted,proto3" json:"converted,omitempty"`
	Status       ConversionResult_Status `protobuf:"varint,4,opt,name=status,proto3,enum=api.v1.ConversionResult_Status" json:"status,omitempty"`
	ErrorKind    string                  `protobuf:"bytes,5,opt,name=error_kind,json=errorKind,proto3" json:"error_kind,omitempty"`
	ErrorMessage string                  `protobuf:"bytes,6,opt,name=error_message,json=errorMessage,proto3" json:"error_message,omitempty"`
	ChunkCount   int64                   `protobuf:"varint,7,opt,name=chunk_count,json=chunkCount,proto3" json:"chunk_count,omitempty"`
	BytesWritten int64                   `protobuf:"varint,8,opt,name=bytes_written,json=bytesWritten,proto3" json:"bytes_written,omitempty"`
}

func (m *ConversionResult) Reset()         { *m = ConversionResult{} }
func (m *ConversionResult) String() string { return proto.CompactTextString(m) }
func (*ConversionResult) ProtoMessage()    {}
func (m *ConversionResult) XXX_Unmarshal(b []byte) error {
	return xxx_messageInfo_ConversionResult.Unmarshal(m, b)
}
func (m *ConversionResult) XXX_Marshal(b []byte, deterministic bool) ([]byte, error) {
	return xxx_messageInfo_ConversionResult.Marshal(b, m, deterministic)
}
func (m *ConversionResult) XXX_Merge(src proto.Message) {
	xxx_messageInfo_ConversionResult.Merge(m, src)
}
func (m *ConversionResult) XXX_Size() int {
	return xxx_messageInfo_ConversionResult.Size(m)
}
func (m *ConversionResult) XXX_DiscardUnknown() {
	xxx_messageInfo_ConversionResult.DiscardUnknown(m)
}

var xxx_messageInfo_ConversionResult proto.InternalMessageInfo

func (m *ConversionResult) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

func (m *ConversionResult) GetSource() *Location {
	if m != nil {
		return m.Source
	}
	return nil
}

func (m *ConversionResult) GetConverted() *Location {
	if m != nil {
		return m.Converted
	}
	return nil
}

func (m *ConversionResult) GetStatus() ConversionResult_Status {
	if m != nil {
		return m.Status
	}
	return ConversionResult_UNKNOWN
}

func (m *ConversionResult) GetErrorKind() string {
	if m != nil {
		return m.ErrorKind
	}
	return ""
}

func (m *ConversionResult) GetErrorMessage() string {
	if m != nil {
		return m.ErrorMessage
	}
	return ""
}

func (m *ConversionResult) GetChunkCount() int64 {
	if m != nil {
		return m.ChunkCount
	}
	return 0
}

func (m *ConversionResult) GetBytesWritten() int64 {
	if m != nil {
		return m.BytesWritten
	}
	return 0
}

func init() {
	proto.RegisterEnum("api.v1.Location_Kind", Location_Kind_name, Location_Kind_value)
	proto.RegisterEnum("api.v1.ConversionResult_Status", ConversionResult_Status_name, ConversionResult_Status_value)
	proto.RegisterType((*Location)(nil), "api.v1.Location")
	proto.RegisterType((*ConversionJob)(nil), "api.v1.ConversionJob")
	proto.RegisterType((*ConversionResult)(nil), "api.v1.ConversionResult")
}
