package mcpserver

// Tool descriptions with interpretation guidance for LLMs. Each one says
// what the tool does, when to use it, and how to read the result.

func describeGenerateModel() string {
	return `Generates a library model: Java-like classes that stand in for the libraries of an application, so a whole-program analysis can run on the application alone.

USE WHEN:
- Preparing input for a static analyzer that cannot load the real libraries
- Checking which library methods an application actually references
- Verifying that an application's entry points are detected

INTERPRETING RESULTS:
- degraded: true means some library member was emitted without a valid body; the model is usable but incomplete
- entry_points: application classes the platform calls into; zero usually means the entry-point configuration does not match
- report.hierarchy: initial, added, removed and final library methods and fields of the cleanup step
- report.synthesis: crafted classes stand in for abstract library types only the application implements
- diagnostics: contract-violation and validation-failure entries are the causes of a degraded run; input-inconsistency entries are skipped inputs

RETURNS:
- Run summary with per-stage counts, the output directory and fingerprint when output_dir is set
- Diagnostics, truncated to max_diagnostics; diagnostics.yaml in output_dir has them all`
}

func describeReadModel() string {
	return `Reads a library model written by generate_model.

USE WHEN:
- Inspecting which library classes and methods the model contains
- Reading the synthesized body of a library method
- Comparing two runs by fingerprint

INTERPRETING RESULTS:
- generated types are the synthesized root, the library class, crafted stand-ins and marker interfaces
- other types are the library classes kept after cleanup
- failed lists members left without a body
- application lists application classes that were given generated interfaces

RETURNS:
- The model summary: root, library, doItAll and main signatures, stats, fingerprint
- Types with their fields and methods; bodies only when with_bodies is set`
}

func describeClassifyTypes() string {
	return `Classifies type names as application or library code.

USE WHEN:
- Checking that application patterns in the configuration select the right packages
- Finding out whether a class is present in the loaded universe

INTERPRETING RESULTS:
- known: false means the name is not in the universe; check spelling and use $ for nested classes
- provenance: application types are analyzed, library types are modeled

RETURNS:
- One entry per name with provenance and kind (class or interface)`
}

func describeSubtypesOf() string {
	return `Lists every transitive subclass and implementer of a type.

USE WHEN:
- Finding the application classes that implement a library callback interface
- Checking which concrete classes a library type may be at run time

INTERPRETING RESULTS:
- application subtypes of a library interface are candidate entry points
- abstract and interface subtypes cannot be instantiated
- phantom types were referenced but never declared

RETURNS:
- The queried class and its subtypes, breadth first`
}

func describeSupertypesOf() string {
	return `Lists the superclasses and superinterfaces of a type.

USE WHEN:
- Finding the library contracts an application class implements
- Understanding why a class was detected as an entry point

INTERPRETING RESULTS:
- superclasses come first, nearest first, ending at java.lang.Object
- superinterfaces follow, including those inherited from superclasses

RETURNS:
- The queried class and its supertypes`
}

func describeEntryPoints() string {
	return `Detects the application entry points: classes the platform or a framework instantiates and calls.

USE WHEN:
- Verifying entry-point configuration before generating a model
- Listing the callbacks the generated doItAll method will drive

INTERPRETING RESULTS:
- tag subtyping: the class implements a configured library contract
- tag annotation: the class carries a configured framework annotation; methods lists the annotated methods
- contract: the library type through which the platform sees the class

RETURNS:
- One entry per application entry-point class`
}
