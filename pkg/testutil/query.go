package testutil

import (
	bqpb "github.com/bazelbuild/buildtools/build_proto"
	"google.golang.org/protobuf/proto"
)

// QueryResult builds a query result holding the given rules.
func QueryResult(rules ...*bqpb.Rule) *bqpb.QueryResult {
	result := &bqpb.QueryResult{}
	for _, rule := range rules {
		result.Target = append(result.Target, &bqpb.Target{
			Type: bqpb.Target_RULE.Enum(),
			Rule: rule,
		})
	}
	return result
}

// Rule builds a rule record.
func Rule(name, ruleClass string, attrs ...*bqpb.Attribute) *bqpb.Rule {
	return &bqpb.Rule{
		Name:      proto.String(name),
		RuleClass: proto.String(ruleClass),
		Attribute: attrs,
	}
}

// StringAttr builds a STRING attribute.
func StringAttr(name, value string) *bqpb.Attribute {
	return &bqpb.Attribute{
		Name:        proto.String(name),
		Type:        bqpb.Attribute_STRING.Enum(),
		StringValue: proto.String(value),
	}
}

// LabelAttr builds a LABEL attribute.
func LabelAttr(name, value string) *bqpb.Attribute {
	return &bqpb.Attribute{
		Name:        proto.String(name),
		Type:        bqpb.Attribute_LABEL.Enum(),
		StringValue: proto.String(value),
	}
}

// LabelListAttr builds a LABEL_LIST attribute.
func LabelListAttr(name string, values ...string) *bqpb.Attribute {
	return &bqpb.Attribute{
		Name:            proto.String(name),
		Type:            bqpb.Attribute_LABEL_LIST.Enum(),
		StringListValue: values,
	}
}

// BoolAttr builds a BOOLEAN attribute, encoded in the int value the way
// bazel query does.
func BoolAttr(name string, value bool) *bqpb.Attribute {
	var i int32
	if value {
		i = 1
	}
	return &bqpb.Attribute{
		Name:     proto.String(name),
		Type:     bqpb.Attribute_BOOLEAN.Enum(),
		IntValue: proto.Int32(i),
	}
}

// InfoOutput is `bazel info` output for a workspace whose output base is
// outputBase.
func InfoOutput(outputBase string) string {
	execRoot := outputBase + "/execroot/_main"
	return "bazel-bin: " + execRoot + "/bazel-out/k8-fastbuild/bin\n" +
		"bazel-genfiles: " + execRoot + "/bazel-out/k8-fastbuild/bin\n" +
		"bazel-testlogs: " + execRoot + "/bazel-out/k8-fastbuild/testlogs\n" +
		"command_log: " + outputBase + "/command.log\n" +
		"execution_root: " + execRoot + "\n" +
		"output_base: " + outputBase + "\n" +
		"output_path: " + execRoot + "/bazel-out\n" +
		"release: release 7.1.0\n" +
		"repository_cache: /home/user/.cache/bazel/repository_cache\n"
}
