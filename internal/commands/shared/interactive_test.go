// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import "testing"

func TestIsNonInteractive_EnvVar(t *testing.T) {
	t.Setenv("DOCFLOW_NON_INTERACTIVE", "true")

	if !IsNonInteractive() {
		t.Error("expected non-interactive when DOCFLOW_NON_INTERACTIVE=true")
	}
}

func TestIsNonInteractive_CI(t *testing.T) {
	t.Setenv("DOCFLOW_NON_INTERACTIVE", "")
	t.Setenv("CI", "true")

	if !IsNonInteractive() {
		t.Error("expected non-interactive in CI environment")
	}
}

func TestIsNonInteractive_Jenkins(t *testing.T) {
	t.Setenv("DOCFLOW_NON_INTERACTIVE", "")
	t.Setenv("CI", "")
	t.Setenv("JENKINS_HOME", "/var/lib/jenkins")

	if !IsNonInteractive() {
		t.Error("expected non-interactive when JENKINS_HOME is set")
	}
}

func TestIsCIEnvironment_IgnoresFalse(t *testing.T) {
	t.Setenv("CI", "false")
	t.Setenv("GITHUB_ACTIONS", "")
	t.Setenv("GITLAB_CI", "")
	t.Setenv("CIRCLECI", "")
	t.Setenv("JENKINS_HOME", "")

	if isCIEnvironment() {
		t.Error("CI=false should not count as a CI environment")
	}
}
