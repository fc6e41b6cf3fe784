// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file should be in yaml format. The top-level fields can be any of the fields defined in the Config
struct type. The other fields are defined by the types of the fields of [Config] and nested struct types.
For example, a valid config file is as follows:

	options:
	  log-level: 4
	  pkg-filter: "example.com/service"
	entry: main.main
	profile: cpu.pprof
	dominator-analysis: true
	weights:
	  true-dependence: 3
	  decay: 5

Every field that is not set in the file keeps the value of [NewDefault]. Paths in the config file are relative to
the directory of the config file.

# Unknown callees

The unknown-callee-effect option controls what the analysis assumes about functions that have no body (assembly,
linkname'd declarations) or whose target cannot be resolved. The default "none" treats them as having no effect on
their arguments, which may miss dependencies. Use "modref" for a conservative result.
*/
package config
