package testutils

const (
	DSketchTestGenerateGo = "DSKETCH_TEST_GENERATE_GO"
	DSketchTestCrossJava  = "DSKETCH_TEST_CROSS_JAVA"
	DSketchTestCrossCpp   = "DSKETCH_TEST_CROSS_CPP"
	DSketchTestCrossGo    = "DSKETCH_TEST_CROSS_GO"
)

const (
	JavaPath = "../serialization_test_data/java_generated_files"
	CppPath  = "../serialization_test_data/cpp_generated_files"
	GoPath   = "../serialization_test_data/go_generated_files"
)
