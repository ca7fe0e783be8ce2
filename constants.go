/*
   Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package sheepdog

const (
	// Version project
	Version = "beta"

	// DefaultCollieBinary is the sheepdog cluster administration tool.
	DefaultCollieBinary = "collie"
	// DefaultQemuImgBinary is used for VDI creation through the sheepdog block driver.
	DefaultQemuImgBinary = "qemu-img"
	// QemuImgProtocol prefixes the VDI name in qemu-img targets, e.g. sheepdog:vol1
	QemuImgProtocol = "sheepdog:"

	// DefaultConfigPath directory searched for config.json / config.yaml
	DefaultConfigPath = "/etc/sheepdog/"
	// DefaultListenAddr http api and metrics listen address
	DefaultListenAddr = ":8080"
	// DefaultLogFile empty means console only
	DefaultLogFile = ""

	// EnvPrefix environment variables SHEEPDOG_COLLIEBINARY etc. override the config file
	EnvPrefix = "SHEEPDOG"

	// MetricsNamespace prometheus namespace
	MetricsNamespace = "sheepdog"
)
