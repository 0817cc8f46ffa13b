package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Pool            Category = "Pool"
	Messaging       Category = "Messaging"
	Audit           Category = "Audit"
	MongoDB         Category = "MongoDB"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Pool
	Acquire SubCategory = "Acquire"
	Release SubCategory = "Release"
	Growth  SubCategory = "Growth"
	Sweep   SubCategory = "Sweep"
	Status  SubCategory = "Status"

	// Messaging
	Send      SubCategory = "Send"
	Delivery  SubCategory = "Delivery"
	AutoReply SubCategory = "AutoReply"

	// Audit
	Append  SubCategory = "Append"
	Publish SubCategory = "Publish"
	Consume SubCategory = "Consume"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	HostIp       ExtraKey = "HostIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"
	NodeOrdinal  ExtraKey = "Node"
	UserID       ExtraKey = "UserId"
	Action       ExtraKey = "Action"
	Count        ExtraKey = "Count"
	Duration     ExtraKey = "Duration"
)
